package clinic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var clinicRowColumns = []string{
	"id", "name", "address", "city", "country", "phone_number",
	"greeting_template", "default_language", "supported_languages",
	"vapi_assistant_id", "retell_agent_id", "created_at",
}

func clinicRow(mock pgxmock.PgxPoolIface, id uuid.UUID) *pgxmock.Rows {
	return mock.NewRows(clinicRowColumns).AddRow(
		id, "Sunrise Clinic", "12 Marina Road", "Lagos", "NG", "+2341234567",
		"", "en", []string{"en", "yo"},
		"asst-1", "", time.Now(),
	)
}

func TestGetByVapiAssistant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM clinics WHERE vapi_assistant_id").
		WithArgs("asst-1").
		WillReturnRows(clinicRow(mock, id))

	store := NewStore(mock)
	cl, err := store.GetByVapiAssistant(context.Background(), "asst-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cl.ID != id || cl.Name != "Sunrise Clinic" {
		t.Errorf("clinic = %+v", cl)
	}
	if len(cl.SupportedLanguages) != 2 {
		t.Errorf("languages = %v", cl.SupportedLanguages)
	}
}

func TestGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM clinics WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	store := NewStore(mock)
	_, err = store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSetVapiAssistantMissingClinic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectExec("UPDATE clinics SET vapi_assistant_id").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewStore(mock)
	err = store.SetVapiAssistant(context.Background(), uuid.New(), "asst-2")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetAppointmentTypeScoped(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	id := uuid.New()
	clinicID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM appointment_types").
		WithArgs(id, clinicID).
		WillReturnRows(mock.NewRows([]string{"id", "clinic_id", "name", "duration_minutes", "price", "is_active"}).
			AddRow(id, clinicID, "Consultation", 45, 15000.0, true))

	store := NewStore(mock)
	at, err := store.GetAppointmentType(context.Background(), clinicID, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if at.DurationMinutes != 45 {
		t.Errorf("duration = %d, want 45", at.DurationMinutes)
	}
}
