// Package availability composes the schedule resolver, the occupancy
// aggregator and the slot generator into the availability check exposed to
// voice adapters and the REST API.
package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/appointment"
	"github.com/curavoice/voice-backend/internal/doctor"
	"github.com/curavoice/voice-backend/internal/schedule"
	"github.com/curavoice/voice-backend/pkg/logging"
)

// DoctorStore loads doctor records.
type DoctorStore interface {
	Get(ctx context.Context, clinicID, id uuid.UUID) (*doctor.Doctor, error)
}

// OccupancyStore lists the booked slots that consume availability.
type OccupancyStore interface {
	ListActiveForDoctorOnDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]appointment.SlotUse, error)
}

// BlockedStore lists ad-hoc blocked ranges.
type BlockedStore interface {
	ListForDoctorOrClinicInRange(ctx context.Context, clinicID, doctorID uuid.UUID, rangeStart, rangeEnd time.Time) ([]appointment.BlockedTime, error)
}

// Result is the availability answer spoken back to the patient.
type Result struct {
	Available bool     `json:"available"`
	Slots     []string `json:"slots"`
	Message   string   `json:"message"`
}

// Service runs availability checks. Read-only; safe to retry.
type Service struct {
	doctors DoctorStore
	appts   OccupancyStore
	blocked BlockedStore
	logger  *logging.Logger
}

// NewService creates an availability service.
func NewService(doctors DoctorStore, appts OccupancyStore, blocked BlockedStore, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{doctors: doctors, appts: appts, blocked: blocked, logger: logger}
}

// CheckAvailability computes the bookable slots for a doctor on a date.
// Business conditions (unknown doctor, closed day, corrupt schedule) come
// back as an unavailable Result; only infrastructure failures return an
// error, which callers translate to a safe spoken message.
func (s *Service) CheckAvailability(ctx context.Context, clinicID, doctorID uuid.UUID, date time.Time) (Result, error) {
	doc, err := s.doctors.Get(ctx, clinicID, doctorID)
	if err != nil {
		if errors.Is(err, doctor.ErrNotFound) {
			return Result{Slots: []string{}, Message: "Doctor not found"}, nil
		}
		return Result{}, fmt.Errorf("availability: load doctor: %w", err)
	}
	if !doc.Active {
		return Result{Slots: []string{}, Message: "Doctor is not active"}, nil
	}

	day, err := doc.ResolveDay(date)
	if err != nil {
		var cfgErr *schedule.ConfigError
		if errors.As(err, &cfgErr) {
			// Corrupt schedule data must not take down the request path, but
			// it needs operator attention; patients just hear "no slots".
			s.logger.Error("availability: corrupt doctor schedule",
				"error_kind", "schedule_config",
				"doctor_id", doctorID,
				"clinic_id", clinicID,
				"error", err,
			)
			return Result{Slots: []string{}, Message: "No available slots"}, nil
		}
		return Result{}, fmt.Errorf("availability: resolve schedule: %w", err)
	}
	if day.Closed() {
		weekday := strings.ToLower(date.Weekday().String())
		return Result{Slots: []string{}, Message: "Doctor not available on " + weekday}, nil
	}

	occupied, err := s.occupiedIntervals(ctx, clinicID, doc, date)
	if err != nil {
		return Result{}, err
	}

	starts := schedule.Slots(day, occupied)
	slots := make([]string, 0, len(starts))
	for _, m := range starts {
		slots = append(slots, schedule.FormatClock(m))
	}

	if len(slots) == 0 {
		return Result{Slots: slots, Message: "No available slots"}, nil
	}
	return Result{
		Available: true,
		Slots:     slots,
		Message:   fmt.Sprintf("Found %d available slots", len(slots)),
	}, nil
}

// occupiedIntervals aggregates booked appointments and blocked times into a
// single interval list. The list is not merged or deduplicated; the slot
// generator only needs it for overlap checks.
func (s *Service) occupiedIntervals(ctx context.Context, clinicID uuid.UUID, doc *doctor.Doctor, date time.Time) ([]schedule.Interval, error) {
	uses, err := s.appts.ListActiveForDoctorOnDate(ctx, doc.ID, date)
	if err != nil {
		return nil, fmt.Errorf("availability: load occupancy: %w", err)
	}

	occupied := make([]schedule.Interval, 0, len(uses))
	for _, u := range uses {
		start, err := schedule.ParseClock(u.Time)
		if err != nil {
			return nil, fmt.Errorf("availability: stored appointment time %q: %w", u.Time, err)
		}
		duration := u.DurationMinutes
		if duration <= 0 {
			duration = doc.SlotDurationMinutes
		}
		occupied = append(occupied, schedule.Interval{Start: start, End: start + duration})
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	blocks, err := s.blocked.ListForDoctorOrClinicInRange(ctx, clinicID, doc.ID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("availability: load blocked times: %w", err)
	}
	for _, b := range blocks {
		if iv := b.IntervalOn(date); !iv.Empty() {
			occupied = append(occupied, iv)
		}
	}

	return occupied, nil
}
