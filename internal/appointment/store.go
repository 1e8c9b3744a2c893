package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// Store persists appointments. The single-active-appointment-per-slot
// invariant is enforced by the partial unique index
// ux_appointments_active_slot on (doctor_id, date, time) where the status is
// active; the store maps that violation to ErrSlotTaken so concurrent
// bookings of the same slot resolve to exactly one winner without any
// in-process locking.
type Store struct {
	db DB
}

// NewStore creates an appointment store backed by pgx.
func NewStore(db DB) *Store {
	if db == nil {
		panic("appointment: db required")
	}
	return &Store{db: db}
}

const apptColumns = `id, clinic_id, doctor_id, patient_id, appointment_type_id,
	date, time::text, duration_minutes, COALESCE(reason, ''), status, created_via,
	confirmation_sent, confirmation_sent_at, reminder_sent, reminder_sent_at,
	COALESCE(cancellation_reason, ''), cancelled_at, rescheduled_at, created_at`

// InsertParams carries a new appointment row.
type InsertParams struct {
	ClinicID          uuid.UUID
	DoctorID          uuid.UUID
	PatientID         uuid.UUID
	AppointmentTypeID *uuid.UUID
	Date              time.Time
	Time              string // canonical "HH:MM:SS"
	DurationMinutes   int
	Reason            string
	CreatedVia        string
}

// Insert writes a new appointment in the scheduled state. Returns ErrSlotTaken
// when an active appointment already holds the slot.
func (s *Store) Insert(ctx context.Context, p InsertParams) (*Appointment, error) {
	query := `
		INSERT INTO appointments
			(id, clinic_id, doctor_id, patient_id, appointment_type_id,
			 date, time, duration_minutes, reason, status, created_via)
		VALUES ($1, $2, $3, $4, $5, $6, $7::time, $8, NULLIF($9, ''), 'scheduled', $10)
		RETURNING ` + apptColumns
	row := s.db.QueryRow(ctx, query,
		uuid.New(),
		p.ClinicID,
		p.DoctorID,
		p.PatientID,
		p.AppointmentTypeID,
		p.Date,
		p.Time,
		p.DurationMinutes,
		p.Reason,
		p.CreatedVia,
	)
	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointment: insert failed: %w", err)
	}
	return appt, nil
}

// GetByID fetches an appointment scoped to the clinic.
func (s *Store) GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE id = $1 AND clinic_id = $2`
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id, clinicID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointment: select failed: %w", err)
	}
	return appt, nil
}

// SlotUse is the occupancy contribution of one active appointment.
type SlotUse struct {
	Time            string
	DurationMinutes int
}

// ListActiveForDoctorOnDate returns the booked (time, duration) pairs that
// consume slots for the doctor on the date. Read-only; safe to retry.
func (s *Store) ListActiveForDoctorOnDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]SlotUse, error) {
	query := `
		SELECT time::text, duration_minutes
		FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND status IN ('scheduled', 'confirmed')
		ORDER BY time
	`
	rows, err := s.db.Query(ctx, query, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("appointment: occupancy query failed: %w", err)
	}
	defer rows.Close()

	var uses []SlotUse
	for rows.Next() {
		var u SlotUse
		if err := rows.Scan(&u.Time, &u.DurationMinutes); err != nil {
			return nil, fmt.Errorf("appointment: occupancy scan failed: %w", err)
		}
		uses = append(uses, u)
	}
	return uses, rows.Err()
}

// ExistsActiveSlot is the friendly pre-check before Insert/Reschedule. The
// authoritative guard is the unique index; this only exists so the common
// case fails before a patient upsert. excludeID skips the appointment being
// rescheduled.
func (s *Store) ExistsActiveSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, clock string, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND date = $2 AND time = $3::time
			  AND status IN ('scheduled', 'confirmed')
			  AND ($4::uuid IS NULL OR id <> $4)
		)
	`
	var exists bool
	if err := s.db.QueryRow(ctx, query, doctorID, date, clock, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("appointment: slot check failed: %w", err)
	}
	return exists, nil
}

// MarkCancelled transitions an active appointment to cancelled. The status
// guard lives in the WHERE clause so a concurrent cancel or completion loses
// cleanly: zero rows means the appointment was not in an active state (or not
// owned by the clinic), reported as ErrInvalidTransition / ErrNotFound.
func (s *Store) MarkCancelled(ctx context.Context, clinicID, id uuid.UUID, reason string) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = 'cancelled',
		    cancellation_reason = NULLIF($3, ''),
		    cancelled_at = now()
		WHERE id = $1 AND clinic_id = $2 AND status IN ('scheduled', 'confirmed')
		RETURNING ` + apptColumns
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id, clinicID, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.explainMissedUpdate(ctx, clinicID, id)
		}
		return nil, fmt.Errorf("appointment: cancel failed: %w", err)
	}
	return appt, nil
}

// Reschedule moves an active appointment to a new slot, resetting the
// reminder flag so the patient is reminded about the new time. The
// confirmation flag is deliberately untouched. Returns ErrSlotTaken when the
// target slot is held by another active appointment.
func (s *Store) Reschedule(ctx context.Context, clinicID, id uuid.UUID, newDate time.Time, newTime string) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET date = $3,
		    time = $4::time,
		    rescheduled_at = now(),
		    reminder_sent = false,
		    reminder_sent_at = NULL
		WHERE id = $1 AND clinic_id = $2 AND status IN ('scheduled', 'confirmed')
		RETURNING ` + apptColumns
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id, clinicID, newDate, newTime))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.explainMissedUpdate(ctx, clinicID, id)
		}
		return nil, fmt.Errorf("appointment: reschedule failed: %w", err)
	}
	return appt, nil
}

// explainMissedUpdate distinguishes "not found" from "terminal status" after a
// guarded update matched zero rows.
func (s *Store) explainMissedUpdate(ctx context.Context, clinicID, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, clinicID, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}

// Upcoming is a patient-facing appointment row joined with the doctor.
type Upcoming struct {
	Appointment
	DoctorName      string
	DoctorTitle     string
	DoctorSpecialty string
}

// ListUpcomingForPatient returns the patient's active appointments from today
// onward, soonest first.
func (s *Store) ListUpcomingForPatient(ctx context.Context, clinicID, patientID uuid.UUID, today time.Time) ([]Upcoming, error) {
	query := `
		SELECT a.id, a.clinic_id, a.doctor_id, a.patient_id, a.appointment_type_id,
		       a.date, a.time::text, a.duration_minutes, COALESCE(a.reason, ''), a.status, a.created_via,
		       a.confirmation_sent, a.confirmation_sent_at, a.reminder_sent, a.reminder_sent_at,
		       COALESCE(a.cancellation_reason, ''), a.cancelled_at, a.rescheduled_at, a.created_at,
		       d.name, d.title, d.specialty
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.clinic_id = $1 AND a.patient_id = $2
		  AND a.status IN ('scheduled', 'confirmed')
		  AND a.date >= $3
		ORDER BY a.date, a.time
	`
	rows, err := s.db.Query(ctx, query, clinicID, patientID, today)
	if err != nil {
		return nil, fmt.Errorf("appointment: upcoming query failed: %w", err)
	}
	defer rows.Close()

	var out []Upcoming
	for rows.Next() {
		var u Upcoming
		if err := rows.Scan(
			&u.ID, &u.ClinicID, &u.DoctorID, &u.PatientID, &u.AppointmentTypeID,
			&u.Date, &u.Time, &u.DurationMinutes, &u.Reason, &u.Status, &u.CreatedVia,
			&u.ConfirmationSent, &u.ConfirmationSentAt, &u.ReminderSent, &u.ReminderSentAt,
			&u.CancellationReason, &u.CancelledAt, &u.RescheduledAt, &u.CreatedAt,
			&u.DoctorName, &u.DoctorTitle, &u.DoctorSpecialty,
		); err != nil {
			return nil, fmt.Errorf("appointment: upcoming scan failed: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// MarkConfirmationSent records that the booking confirmation went out.
func (s *Store) MarkConfirmationSent(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET confirmation_sent = true, confirmation_sent_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("appointment: mark confirmation failed: %w", err)
	}
	return nil
}

// MarkReminderSent records that the reminder went out. A reschedule racing
// this write may clear the flag again; last writer wins.
func (s *Store) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = true, reminder_sent_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("appointment: mark reminder failed: %w", err)
	}
	return nil
}

// ReminderCandidate is an active appointment inside the reminder window.
type ReminderCandidate struct {
	ID       uuid.UUID
	ClinicID uuid.UUID
	Date     time.Time
	Time     string
}

// ListNeedingReminder finds active appointments dated inside [from, to] whose
// reminder has not been sent.
func (s *Store) ListNeedingReminder(ctx context.Context, from, to time.Time) ([]ReminderCandidate, error) {
	query := `
		SELECT id, clinic_id, date, time::text
		FROM appointments
		WHERE date >= $1 AND date <= $2
		  AND reminder_sent = false
		  AND status IN ('scheduled', 'confirmed')
		ORDER BY date, time
	`
	rows, err := s.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointment: reminder query failed: %w", err)
	}
	defer rows.Close()

	var out []ReminderCandidate
	for rows.Next() {
		var c ReminderCandidate
		if err := rows.Scan(&c.ID, &c.ClinicID, &c.Date, &c.Time); err != nil {
			return nil, fmt.Errorf("appointment: reminder scan failed: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Detail is the fully joined record handed to the notifier.
type Detail struct {
	Appointment
	PatientName     string
	PatientPhone    string
	PatientLanguage string
	PrefersWhatsApp bool
	DoctorName      string
	DoctorTitle     string
	ClinicName      string
	ClinicAddress   string
	ClinicPhone     string
}

// GetDetail loads the appointment joined with patient, doctor and clinic.
func (s *Store) GetDetail(ctx context.Context, clinicID, id uuid.UUID) (*Detail, error) {
	query := `
		SELECT a.id, a.clinic_id, a.doctor_id, a.patient_id, a.appointment_type_id,
		       a.date, a.time::text, a.duration_minutes, COALESCE(a.reason, ''), a.status, a.created_via,
		       a.confirmation_sent, a.confirmation_sent_at, a.reminder_sent, a.reminder_sent_at,
		       COALESCE(a.cancellation_reason, ''), a.cancelled_at, a.rescheduled_at, a.created_at,
		       p.name, p.phone, p.preferred_language, p.prefers_whatsapp,
		       d.name, d.title,
		       c.name, c.address, c.phone_number
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		JOIN clinics c ON c.id = a.clinic_id
		WHERE a.id = $1 AND a.clinic_id = $2
	`
	var dt Detail
	err := s.db.QueryRow(ctx, query, id, clinicID).Scan(
		&dt.ID, &dt.ClinicID, &dt.DoctorID, &dt.PatientID, &dt.AppointmentTypeID,
		&dt.Date, &dt.Time, &dt.DurationMinutes, &dt.Reason, &dt.Status, &dt.CreatedVia,
		&dt.ConfirmationSent, &dt.ConfirmationSentAt, &dt.ReminderSent, &dt.ReminderSentAt,
		&dt.CancellationReason, &dt.CancelledAt, &dt.RescheduledAt, &dt.CreatedAt,
		&dt.PatientName, &dt.PatientPhone, &dt.PatientLanguage, &dt.PrefersWhatsApp,
		&dt.DoctorName, &dt.DoctorTitle,
		&dt.ClinicName, &dt.ClinicAddress, &dt.ClinicPhone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointment: detail query failed: %w", err)
	}
	return &dt, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(
		&a.ID, &a.ClinicID, &a.DoctorID, &a.PatientID, &a.AppointmentTypeID,
		&a.Date, &a.Time, &a.DurationMinutes, &a.Reason, &a.Status, &a.CreatedVia,
		&a.ConfirmationSent, &a.ConfirmationSentAt, &a.ReminderSent, &a.ReminderSentAt,
		&a.CancellationReason, &a.CancelledAt, &a.RescheduledAt, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
