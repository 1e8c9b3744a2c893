// Package appointment owns the appointment lifecycle and its storage,
// including the storage-level double-booking guard.
package appointment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/schedule"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// Active reports whether the status consumes a slot. Only active appointments
// participate in occupancy and the unique slot constraint.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

var (
	// ErrNotFound is returned when no appointment matches the (clinic, id) pair.
	ErrNotFound = errors.New("appointment: not found")
	// ErrSlotTaken is returned when an active appointment already holds the
	// (doctor, date, time) slot. Recoverable: the caller re-checks availability.
	ErrSlotTaken = errors.New("appointment: slot already booked")
	// ErrInvalidTransition is returned when cancel or reschedule hits an
	// appointment in a terminal status.
	ErrInvalidTransition = errors.New("appointment: invalid status transition")
)

// Appointment is one booked visit. Date is a calendar date (midnight UTC);
// Time is the canonical "HH:MM:SS" time-of-day string.
type Appointment struct {
	ID                 uuid.UUID
	ClinicID           uuid.UUID
	DoctorID           uuid.UUID
	PatientID          uuid.UUID
	AppointmentTypeID  *uuid.UUID
	Date               time.Time
	Time               string
	DurationMinutes    int
	Reason             string
	Status             Status
	CreatedVia         string
	ConfirmationSent   bool
	ConfirmationSentAt *time.Time
	ReminderSent       bool
	ReminderSentAt     *time.Time
	CancellationReason string
	CancelledAt        *time.Time
	RescheduledAt      *time.Time
	CreatedAt          time.Time
}

// Interval is the occupancy range [time, time+duration) in minutes.
func (a *Appointment) Interval() (schedule.Interval, error) {
	start, err := schedule.ParseClock(a.Time)
	if err != nil {
		return schedule.Interval{}, err
	}
	return schedule.Interval{Start: start, End: start + a.DurationMinutes}, nil
}

// StartClock returns the time-of-day as "HH:MM" for the voice boundary.
func (a *Appointment) StartClock() string {
	if m, err := schedule.ParseClock(a.Time); err == nil {
		return schedule.FormatClock(m)
	}
	return a.Time
}

// NormalizeTime canonicalizes a boundary "HH:MM" (or "HH:MM:SS") value to the
// stored "HH:MM:SS" form. The slot uniqueness guard compares this column
// textually, so every writer must go through here.
func NormalizeTime(s string) (string, error) {
	minutes, err := schedule.ParseClock(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d:00", minutes/60, minutes%60), nil
}

// ParseDate parses the boundary YYYY-MM-DD format.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("appointment: malformed date %q", s)
	}
	return d, nil
}
