package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs; satisfied by pgxmock.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads clinic records from Postgres.
type Store struct {
	db DB
}

// NewStore creates a clinic store backed by pgx.
func NewStore(db DB) *Store {
	if db == nil {
		panic("clinic: db required")
	}
	return &Store{db: db}
}

const clinicColumns = `id, name, address, city, country, phone_number,
	greeting_template, default_language, supported_languages,
	vapi_assistant_id, retell_agent_id, created_at`

// Get fetches a clinic by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	query := `SELECT ` + clinicColumns + ` FROM clinics WHERE id = $1`
	return s.one(ctx, query, id)
}

// GetByVapiAssistant resolves the clinic that owns a Vapi assistant. Used when
// a webhook arrives without clinic metadata.
func (s *Store) GetByVapiAssistant(ctx context.Context, assistantID string) (*Clinic, error) {
	query := `SELECT ` + clinicColumns + ` FROM clinics WHERE vapi_assistant_id = $1`
	return s.one(ctx, query, assistantID)
}

// GetByRetellAgent resolves the clinic bound to a Retell agent.
func (s *Store) GetByRetellAgent(ctx context.Context, agentID string) (*Clinic, error) {
	query := `SELECT ` + clinicColumns + ` FROM clinics WHERE retell_agent_id = $1`
	return s.one(ctx, query, agentID)
}

// GetByPhoneNumber resolves the clinic that owns a provisioned number.
func (s *Store) GetByPhoneNumber(ctx context.Context, number string) (*Clinic, error) {
	query := `SELECT ` + clinicColumns + ` FROM clinics WHERE phone_number = $1`
	return s.one(ctx, query, number)
}

func (s *Store) one(ctx context.Context, query string, arg any) (*Clinic, error) {
	var c Clinic
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&c.ID,
		&c.Name,
		&c.Address,
		&c.City,
		&c.Country,
		&c.PhoneNumber,
		&c.GreetingTemplate,
		&c.DefaultLanguage,
		&c.SupportedLanguages,
		&c.VapiAssistantID,
		&c.RetellAgentID,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("clinic: select failed: %w", err)
	}
	return &c, nil
}

// SetVapiAssistant records the assistant provisioned for the clinic.
func (s *Store) SetVapiAssistant(ctx context.Context, id uuid.UUID, assistantID string) error {
	tag, err := s.db.Exec(ctx, `UPDATE clinics SET vapi_assistant_id = $2 WHERE id = $1`, id, assistantID)
	if err != nil {
		return fmt.Errorf("clinic: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRetellAgent records the agent provisioned for the clinic.
func (s *Store) SetRetellAgent(ctx context.Context, id uuid.UUID, agentID string) error {
	tag, err := s.db.Exec(ctx, `UPDATE clinics SET retell_agent_id = $2 WHERE id = $1`, id, agentID)
	if err != nil {
		return fmt.Errorf("clinic: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPhoneNumber records the voice number provisioned for the clinic.
func (s *Store) SetPhoneNumber(ctx context.Context, id uuid.UUID, number string) error {
	tag, err := s.db.Exec(ctx, `UPDATE clinics SET phone_number = $2 WHERE id = $1`, id, number)
	if err != nil {
		return fmt.Errorf("clinic: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAppointmentTypes returns the clinic's active services.
func (s *Store) ListAppointmentTypes(ctx context.Context, clinicID uuid.UUID) ([]AppointmentType, error) {
	query := `
		SELECT id, clinic_id, name, duration_minutes, price, is_active
		FROM appointment_types
		WHERE clinic_id = $1 AND is_active
		ORDER BY name
	`
	rows, err := s.db.Query(ctx, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("clinic: list appointment types failed: %w", err)
	}
	defer rows.Close()

	var types []AppointmentType
	for rows.Next() {
		var at AppointmentType
		if err := rows.Scan(&at.ID, &at.ClinicID, &at.Name, &at.DurationMinutes, &at.Price, &at.Active); err != nil {
			return nil, fmt.Errorf("clinic: scan appointment type failed: %w", err)
		}
		types = append(types, at)
	}
	return types, rows.Err()
}

// GetAppointmentType fetches one service, clinic scoped.
func (s *Store) GetAppointmentType(ctx context.Context, clinicID, id uuid.UUID) (*AppointmentType, error) {
	query := `
		SELECT id, clinic_id, name, duration_minutes, price, is_active
		FROM appointment_types
		WHERE id = $1 AND clinic_id = $2
	`
	var at AppointmentType
	err := s.db.QueryRow(ctx, query, id, clinicID).Scan(
		&at.ID, &at.ClinicID, &at.Name, &at.DurationMinutes, &at.Price, &at.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("clinic: select appointment type failed: %w", err)
	}
	return &at, nil
}
