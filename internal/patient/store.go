package patient

import (
	"context"
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

// Store reads and upserts patient records.
type Store struct {
	db DB
}

// NewStore creates a patient store backed by pgx.
func NewStore(db DB) *Store {
	if db == nil {
		panic("patient: db required")
	}
	return &Store{db: db}
}

// FindOrCreateParams carries the data collected from a first-contact caller.
type FindOrCreateParams struct {
	ClinicID          uuid.UUID
	Phone             string
	Name              string
	Email             string
	PreferredLanguage string
	PrefersWhatsApp   bool
}

// FindOrCreate upserts a patient by (clinic_id, phone). An existing record is
// returned untouched; the stored name is never overwritten by a later call.
// The single statement keeps concurrent first contacts from racing a separate
// select-then-insert into duplicate rows.
func (s *Store) FindOrCreate(ctx context.Context, p FindOrCreateParams) (*Patient, error) {
	if p.Phone == "" {
		return nil, errors.New("patient: phone required")
	}
	if p.PreferredLanguage == "" {
		p.PreferredLanguage = "en"
	}
	query := `
		INSERT INTO patients (id, clinic_id, phone, name, email, preferred_language, prefers_whatsapp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (clinic_id, phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING id, clinic_id, phone, name, email, preferred_language, prefers_whatsapp, created_at
	`
	var out Patient
	err := s.db.QueryRow(ctx, query,
		uuid.New(),
		p.ClinicID,
		p.Phone,
		p.Name,
		p.Email,
		p.PreferredLanguage,
		p.PrefersWhatsApp,
	).Scan(
		&out.ID,
		&out.ClinicID,
		&out.Phone,
		&out.Name,
		&out.Email,
		&out.PreferredLanguage,
		&out.PrefersWhatsApp,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("patient: upsert failed: %w", err)
	}
	return &out, nil
}

// Lookup fetches a patient by phone, scoped to the clinic.
func (s *Store) Lookup(ctx context.Context, clinicID uuid.UUID, phone string) (*Patient, error) {
	query := `
		SELECT id, clinic_id, phone, name, email, preferred_language, prefers_whatsapp, created_at
		FROM patients
		WHERE clinic_id = $1 AND phone = $2
	`
	var out Patient
	err := s.db.QueryRow(ctx, query, clinicID, phone).Scan(
		&out.ID,
		&out.ClinicID,
		&out.Phone,
		&out.Name,
		&out.Email,
		&out.PreferredLanguage,
		&out.PrefersWhatsApp,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patient: select failed: %w", err)
	}
	return &out, nil
}
