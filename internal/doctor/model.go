// Package doctor holds the doctor directory: who works at a clinic and on
// what recurring weekly schedule.
package doctor

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/schedule"
)

// ErrNotFound is returned when no doctor matches the (clinic, id) pair.
var ErrNotFound = errors.New("doctor: not found")

// Doctor is one practitioner at a clinic. WorkingHours and Breaks are stored
// as JSONB and treated as caller-provided truth; malformed entries surface as
// schedule.ConfigError at resolve time, never as a silent default.
type Doctor struct {
	ID                  uuid.UUID
	ClinicID            uuid.UUID
	Name                string
	Title               string
	Specialty           string
	Active              bool
	WorkingHours        schedule.WeeklyHours
	SlotDurationMinutes int
	BufferMinutes       int
	Breaks              []schedule.BreakWindow
	CreatedAt           time.Time
}

// DisplayName is the spoken form, e.g. "Dr. Adaeze Okafor".
func (d *Doctor) DisplayName() string {
	title := d.Title
	if title == "" {
		title = "Dr."
	}
	return title + " " + d.Name
}

// ResolveDay maps a calendar date onto the doctor's recurring week.
func (d *Doctor) ResolveDay(date time.Time) (schedule.Day, error) {
	return schedule.Resolve(d.WorkingHours, d.Breaks, d.SlotDurationMinutes, d.BufferMinutes, date)
}
