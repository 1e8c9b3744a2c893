package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/schedule"
)

// BlockedTime is an ad-hoc unavailable range: maintenance, a holiday, a
// doctor's absence. DoctorID nil means the block applies to every doctor in
// the clinic.
type BlockedTime struct {
	ID       uuid.UUID
	ClinicID uuid.UUID
	DoctorID *uuid.UUID
	Start    time.Time
	End      time.Time
	Reason   string
}

// IntervalOn clamps the block to one calendar date and converts it to a
// minute interval. A block spanning midnight contributes occupancy to every
// date it touches: on each date the portion outside [00:00, 24:00) is cut
// off. Returns an empty interval when the block does not touch the date.
func (b *BlockedTime) IntervalOn(date time.Time) schedule.Interval {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	start := b.Start
	if start.Before(dayStart) {
		start = dayStart
	}
	end := b.End
	if end.After(dayEnd) {
		end = dayEnd
	}
	if !end.After(start) {
		return schedule.Interval{}
	}
	return schedule.Interval{
		Start: start.Hour()*60 + start.Minute(),
		End:   minuteOfDayEnd(end, dayEnd),
	}
}

// minuteOfDayEnd maps an exclusive end instant to a minute offset, treating
// the following midnight as minute 1440 rather than 0.
func minuteOfDayEnd(end, dayEnd time.Time) int {
	if !end.Before(dayEnd) {
		return schedule.MinutesPerDay
	}
	return end.Hour()*60 + end.Minute()
}

// BlockedStore reads blocked-time rows.
type BlockedStore struct {
	db DB
}

// NewBlockedStore creates a blocked-time store backed by pgx.
func NewBlockedStore(db DB) *BlockedStore {
	if db == nil {
		panic("appointment: db required")
	}
	return &BlockedStore{db: db}
}

// ListForDoctorOrClinicInRange returns clinic-wide blocks and blocks for the
// given doctor whose absolute range intersects [rangeStart, rangeEnd).
// Read-only; safe to retry.
func (s *BlockedStore) ListForDoctorOrClinicInRange(ctx context.Context, clinicID, doctorID uuid.UUID, rangeStart, rangeEnd time.Time) ([]BlockedTime, error) {
	query := `
		SELECT id, clinic_id, doctor_id, start_datetime, end_datetime, COALESCE(reason, '')
		FROM blocked_times
		WHERE clinic_id = $1
		  AND (doctor_id IS NULL OR doctor_id = $2)
		  AND start_datetime < $4
		  AND end_datetime > $3
		ORDER BY start_datetime
	`
	rows, err := s.db.Query(ctx, query, clinicID, doctorID, rangeStart, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("appointment: blocked query failed: %w", err)
	}
	defer rows.Close()

	var blocks []BlockedTime
	for rows.Next() {
		var b BlockedTime
		if err := rows.Scan(&b.ID, &b.ClinicID, &b.DoctorID, &b.Start, &b.End, &b.Reason); err != nil {
			return nil, fmt.Errorf("appointment: blocked scan failed: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}
