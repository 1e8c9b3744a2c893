package doctor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var doctorRowColumns = []string{
	"id", "clinic_id", "name", "title", "specialty", "is_active",
	"working_hours", "slot_duration", "buffer_time", "break_times", "created_at",
}

func doctorRow(mock pgxmock.PgxPoolIface, id, clinicID uuid.UUID, name string) *pgxmock.Rows {
	hours := []byte(`{"monday": {"enabled": true, "start": "09:00", "end": "17:00"}}`)
	breaks := []byte(`[{"start": "13:00", "end": "14:00"}]`)
	return mock.NewRows(doctorRowColumns).AddRow(
		id, clinicID, name, "Dr.", "General Practice", true,
		hours, 30, 0, breaks, time.Now(),
	)
}

func TestGetScansSchedule(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	id := uuid.New()
	clinicID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM doctors WHERE id").
		WithArgs(id, clinicID).
		WillReturnRows(doctorRow(mock, id, clinicID, "Adaeze Okafor"))

	store := NewStore(mock)
	d, err := store.Get(context.Background(), clinicID, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.DisplayName() != "Dr. Adaeze Okafor" {
		t.Errorf("display name = %s", d.DisplayName())
	}
	if d.WorkingHours["monday"].Start != "09:00" {
		t.Errorf("working hours not scanned: %+v", d.WorkingHours)
	}
	if len(d.Breaks) != 1 || d.Breaks[0].Start != "13:00" {
		t.Errorf("breaks not scanned: %+v", d.Breaks)
	}
}

func TestGetWrongClinicIsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM doctors WHERE id").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	store := NewStore(mock)
	_, err = store.Get(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	clinicID := uuid.New()
	rows := doctorRow(mock, uuid.New(), clinicID, "Adaeze Okafor").AddRow(
		uuid.New(), clinicID, "Tunde Adeyemi", "Dr.", "Pediatrics", true,
		[]byte(`{}`), 20, 5, []byte(`[]`), time.Now(),
	)
	mock.ExpectQuery("SELECT (.+) FROM doctors").
		WithArgs(clinicID).
		WillReturnRows(rows)

	store := NewStore(mock)
	docs, err := store.ListActive(context.Background(), clinicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d doctors, want 2", len(docs))
	}
	if docs[1].SlotDurationMinutes != 20 || docs[1].BufferMinutes != 5 {
		t.Errorf("second doctor = %+v", docs[1])
	}
}

func TestGetCorruptWorkingHours(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	id := uuid.New()
	clinicID := uuid.New()
	rows := mock.NewRows(doctorRowColumns).AddRow(
		id, clinicID, "Adaeze Okafor", "Dr.", "", true,
		[]byte(`"whenever"`), 30, 0, []byte(`[]`), time.Now(),
	)
	mock.ExpectQuery("SELECT (.+) FROM doctors WHERE id").
		WillReturnRows(rows)

	store := NewStore(mock)
	if _, err := store.Get(context.Background(), clinicID, id); err == nil {
		t.Fatal("expected an error for corrupt working_hours")
	}
}
