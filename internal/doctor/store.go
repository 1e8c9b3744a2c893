package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DB is the subset of pgxpool.Pool the store needs; satisfied by pgxmock.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads doctor records from Postgres.
type Store struct {
	db DB
}

// NewStore creates a doctor store backed by pgx.
func NewStore(db DB) *Store {
	if db == nil {
		panic("doctor: db required")
	}
	return &Store{db: db}
}

const doctorColumns = `id, clinic_id, name, title, specialty, is_active,
	working_hours, slot_duration, buffer_time, break_times, created_at`

// Get fetches a doctor scoped to the clinic. Returns ErrNotFound for a
// missing row or one owned by another clinic.
func (s *Store) Get(ctx context.Context, clinicID, id uuid.UUID) (*Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1 AND clinic_id = $2`
	d, err := scanDoctor(s.db.QueryRow(ctx, query, id, clinicID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("doctor: select failed: %w", err)
	}
	return d, nil
}

// ListActive returns the clinic's active doctors ordered by name.
func (s *Store) ListActive(ctx context.Context, clinicID uuid.UUID) ([]Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors
		WHERE clinic_id = $1 AND is_active ORDER BY name`
	rows, err := s.db.Query(ctx, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("doctor: list failed: %w", err)
	}
	defer rows.Close()

	var doctors []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("doctor: scan failed: %w", err)
		}
		doctors = append(doctors, *d)
	}
	return doctors, rows.Err()
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var (
		d          Doctor
		hoursJSON  []byte
		breaksJSON []byte
	)
	if err := row.Scan(
		&d.ID,
		&d.ClinicID,
		&d.Name,
		&d.Title,
		&d.Specialty,
		&d.Active,
		&hoursJSON,
		&d.SlotDurationMinutes,
		&d.BufferMinutes,
		&breaksJSON,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(hoursJSON) > 0 {
		if err := json.Unmarshal(hoursJSON, &d.WorkingHours); err != nil {
			return nil, fmt.Errorf("working_hours: %w", err)
		}
	}
	if len(breaksJSON) > 0 {
		if err := json.Unmarshal(breaksJSON, &d.Breaks); err != nil {
			return nil, fmt.Errorf("break_times: %w", err)
		}
	}
	return &d, nil
}
