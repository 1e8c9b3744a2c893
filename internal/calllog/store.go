// Package calllog persists one row per voice call for operator review and
// billing reconciliation.
package calllog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CallLog is the record of one inbound or outbound voice call.
type CallLog struct {
	ID               uuid.UUID
	ClinicID         uuid.UUID
	VendorCallID     string
	Vendor           string // "vapi" or "retell"
	Direction        string
	FromNumber       string
	ToNumber         string
	StartedAt        *time.Time
	EndedAt          *time.Time
	DurationSeconds  int
	Transcript       string
	Summary          string
	DetectedLanguage string
	Outcome          string
	CostUSD          float64
	PatientID        *uuid.UUID
	AppointmentID    *uuid.UUID
	CreatedAt        time.Time
}

// DB is the subset of pgxpool.Pool the store needs; satisfied by pgxmock.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store writes call logs.
type Store struct {
	db DB
}

// NewStore creates a call log store backed by pgx.
func NewStore(db DB) *Store {
	if db == nil {
		panic("calllog: db required")
	}
	return &Store{db: db}
}

// Insert writes one call log row and returns its id.
func (s *Store) Insert(ctx context.Context, log CallLog) (uuid.UUID, error) {
	query := `
		INSERT INTO call_logs
			(id, clinic_id, vendor_call_id, vendor, direction, from_number, to_number,
			 started_at, ended_at, duration_seconds, transcript, summary,
			 detected_language, outcome, cost_usd, patient_id, appointment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`
	id := uuid.New()
	direction := log.Direction
	if direction == "" {
		direction = "inbound"
	}
	var out uuid.UUID
	err := s.db.QueryRow(ctx, query,
		id,
		log.ClinicID,
		log.VendorCallID,
		log.Vendor,
		direction,
		log.FromNumber,
		log.ToNumber,
		log.StartedAt,
		log.EndedAt,
		log.DurationSeconds,
		log.Transcript,
		log.Summary,
		log.DetectedLanguage,
		log.Outcome,
		log.CostUSD,
		log.PatientID,
		log.AppointmentID,
	).Scan(&out)
	if err != nil {
		return uuid.Nil, fmt.Errorf("calllog: insert failed: %w", err)
	}
	return out, nil
}
