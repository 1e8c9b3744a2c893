// Package booking implements the appointment lifecycle operations exposed to
// voice adapters and the REST API: book, cancel, reschedule and the upcoming
// list. All outcomes a caller can speak back to a patient are business
// results; only infrastructure failures surface as errors.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/appointment"
	"github.com/curavoice/voice-backend/internal/availability"
	"github.com/curavoice/voice-backend/internal/clinic"
	"github.com/curavoice/voice-backend/internal/doctor"
	"github.com/curavoice/voice-backend/internal/notify"
	"github.com/curavoice/voice-backend/internal/observability/metrics"
	"github.com/curavoice/voice-backend/internal/patient"
	"github.com/curavoice/voice-backend/internal/schedule"
	"github.com/curavoice/voice-backend/pkg/logging"
)

// DoctorStore loads doctor records.
type DoctorStore interface {
	Get(ctx context.Context, clinicID, id uuid.UUID) (*doctor.Doctor, error)
}

// PatientStore upserts and looks up patients.
type PatientStore interface {
	FindOrCreate(ctx context.Context, p patient.FindOrCreateParams) (*patient.Patient, error)
	Lookup(ctx context.Context, clinicID uuid.UUID, phone string) (*patient.Patient, error)
}

// AppointmentStore persists appointment state transitions.
type AppointmentStore interface {
	Insert(ctx context.Context, p appointment.InsertParams) (*appointment.Appointment, error)
	GetByID(ctx context.Context, clinicID, id uuid.UUID) (*appointment.Appointment, error)
	MarkCancelled(ctx context.Context, clinicID, id uuid.UUID, reason string) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, clinicID, id uuid.UUID, newDate time.Time, newTime string) (*appointment.Appointment, error)
	ExistsActiveSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, clock string, excludeID *uuid.UUID) (bool, error)
	ListUpcomingForPatient(ctx context.Context, clinicID, patientID uuid.UUID, today time.Time) ([]appointment.Upcoming, error)
}

// TypeStore resolves appointment types to durations.
type TypeStore interface {
	GetAppointmentType(ctx context.Context, clinicID, id uuid.UUID) (*clinic.AppointmentType, error)
}

// Availability answers which slots a doctor has free on a date.
type Availability interface {
	CheckAvailability(ctx context.Context, clinicID, doctorID uuid.UUID, date time.Time) (availability.Result, error)
}

// Enqueuer hands notification jobs to the worker pool.
type Enqueuer interface {
	Enqueue(msg notify.Message) bool
}

// Result is the structured answer for one booking operation.
type Result struct {
	Success     bool                     `json:"success"`
	Message     string                   `json:"message"`
	Appointment *appointment.Appointment `json:"appointment,omitempty"`
}

// Service runs the booking operations.
type Service struct {
	doctors  DoctorStore
	patients PatientStore
	appts    AppointmentStore
	types    TypeStore
	checker  Availability
	queue    Enqueuer
	logger   *logging.Logger
	metrics  *metrics.BookingMetrics
	now      func() time.Time
}

// NewService creates a booking service.
func NewService(
	doctors DoctorStore,
	patients PatientStore,
	appts AppointmentStore,
	types TypeStore,
	checker Availability,
	queue Enqueuer,
	logger *logging.Logger,
	m *metrics.BookingMetrics,
) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		doctors:  doctors,
		patients: patients,
		appts:    appts,
		types:    types,
		checker:  checker,
		queue:    queue,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// BookParams carries one booking request from a voice call or the REST API.
type BookParams struct {
	ClinicID          uuid.UUID
	DoctorID          uuid.UUID
	PatientName       string
	PatientPhone      string
	Date              string // "YYYY-MM-DD"
	Time              string // "HH:MM" or "HH:MM:SS"
	Reason            string
	AppointmentTypeID *uuid.UUID
	CreatedVia        string
}

// Book places a new appointment. The requested time only has to be a free
// range inside the doctor's working day; it does not have to sit on the slot
// cadence the availability engine advertises. An optimistic occupancy check
// gives callers a helpful answer, but the unique index on active slots is the
// authority. A concurrent booking that wins the race surfaces here as a
// slot-taken result, never as a double booking.
func (s *Service) Book(ctx context.Context, p BookParams) (Result, error) {
	phone := patient.NormalizePhone(p.PatientPhone)
	if phone == "" {
		return failure("A phone number is required to book an appointment"), nil
	}
	date, err := appointment.ParseDate(p.Date)
	if err != nil {
		return failure(fmt.Sprintf("%q is not a valid date, expected YYYY-MM-DD", p.Date)), nil
	}
	clock, err := appointment.NormalizeTime(p.Time)
	if err != nil {
		return failure(fmt.Sprintf("%q is not a valid time", p.Time)), nil
	}

	doc, msg, err := s.loadActiveDoctor(ctx, p.ClinicID, p.DoctorID)
	if err != nil {
		return Result{}, err
	}
	if msg != "" {
		s.metrics.ObserveBooking("book", "unavailable")
		return failure(msg), nil
	}

	duration, err := s.resolveDuration(ctx, p, doc)
	if err != nil {
		return Result{}, err
	}

	ok, msg, err := s.fitsWorkingDay(doc, date, clock, duration)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		s.metrics.ObserveBooking("book", "unavailable")
		return failure(msg), nil
	}

	start := clock[:5]
	taken, err := s.appts.ExistsActiveSlot(ctx, p.DoctorID, date, clock, nil)
	if err != nil {
		return Result{}, err
	}
	if taken {
		s.metrics.ObserveSlotConflict()
		s.metrics.ObserveBooking("book", "slot_taken")
		return failure(s.takenMessage(ctx, p.ClinicID, p.DoctorID, date, start)), nil
	}

	pat, err := s.patients.FindOrCreate(ctx, patient.FindOrCreateParams{
		ClinicID: p.ClinicID,
		Phone:    phone,
		Name:     p.PatientName,
	})
	if err != nil {
		return Result{}, fmt.Errorf("booking: upsert patient: %w", err)
	}

	createdVia := p.CreatedVia
	if createdVia == "" {
		createdVia = "ai_voice"
	}
	appt, err := s.appts.Insert(ctx, appointment.InsertParams{
		ClinicID:          p.ClinicID,
		DoctorID:          p.DoctorID,
		PatientID:         pat.ID,
		AppointmentTypeID: p.AppointmentTypeID,
		Date:              date,
		Time:              clock,
		DurationMinutes:   duration,
		Reason:            p.Reason,
		CreatedVia:        createdVia,
	})
	if err != nil {
		if errors.Is(err, appointment.ErrSlotTaken) {
			s.metrics.ObserveSlotConflict()
			s.metrics.ObserveBooking("book", "slot_taken")
			return failure("That time was just taken, please pick another slot"), nil
		}
		return Result{}, err
	}

	s.enqueue(notify.Message{Kind: notify.KindConfirmation, ClinicID: appt.ClinicID, AppointmentID: appt.ID})
	s.metrics.ObserveBooking("book", "success")
	return Result{
		Success:     true,
		Message:     fmt.Sprintf("Appointment booked for %s at %s", date.Format("Monday, 2 January"), start),
		Appointment: appt,
	}, nil
}

// Cancel moves an active appointment to cancelled.
func (s *Service) Cancel(ctx context.Context, clinicID, appointmentID uuid.UUID, reason string) (Result, error) {
	appt, err := s.appts.MarkCancelled(ctx, clinicID, appointmentID, reason)
	if err != nil {
		switch {
		case errors.Is(err, appointment.ErrNotFound):
			s.metrics.ObserveBooking("cancel", "not_found")
			return failure("Appointment not found"), nil
		case errors.Is(err, appointment.ErrInvalidTransition):
			s.metrics.ObserveBooking("cancel", "invalid_state")
			return failure("This appointment is no longer active"), nil
		}
		return Result{}, err
	}

	s.enqueue(notify.Message{Kind: notify.KindCancellation, ClinicID: appt.ClinicID, AppointmentID: appt.ID})
	s.metrics.ObserveBooking("cancel", "success")
	return Result{Success: true, Message: "Appointment cancelled", Appointment: appt}, nil
}

// Reschedule moves an active appointment to a new slot. The appointment being
// moved never blocks its own target slot.
func (s *Service) Reschedule(ctx context.Context, clinicID, appointmentID uuid.UUID, newDate, newTime string) (Result, error) {
	date, err := appointment.ParseDate(newDate)
	if err != nil {
		return failure(fmt.Sprintf("%q is not a valid date, expected YYYY-MM-DD", newDate)), nil
	}
	clock, err := appointment.NormalizeTime(newTime)
	if err != nil {
		return failure(fmt.Sprintf("%q is not a valid time", newTime)), nil
	}

	appt, err := s.appts.GetByID(ctx, clinicID, appointmentID)
	if err != nil {
		if errors.Is(err, appointment.ErrNotFound) {
			s.metrics.ObserveBooking("reschedule", "not_found")
			return failure("Appointment not found"), nil
		}
		return Result{}, err
	}

	ok, msg, err := s.slotFitsDoctor(ctx, clinicID, appt, date, clock)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		s.metrics.ObserveBooking("reschedule", "unavailable")
		return failure(msg), nil
	}

	taken, err := s.appts.ExistsActiveSlot(ctx, appt.DoctorID, date, clock, &appt.ID)
	if err != nil {
		return Result{}, err
	}
	if taken {
		s.metrics.ObserveSlotConflict()
		s.metrics.ObserveBooking("reschedule", "slot_taken")
		return failure("That time is already booked, please pick another slot"), nil
	}

	moved, err := s.appts.Reschedule(ctx, clinicID, appointmentID, date, clock)
	if err != nil {
		switch {
		case errors.Is(err, appointment.ErrSlotTaken):
			s.metrics.ObserveSlotConflict()
			s.metrics.ObserveBooking("reschedule", "slot_taken")
			return failure("That time was just taken, please pick another slot"), nil
		case errors.Is(err, appointment.ErrNotFound):
			s.metrics.ObserveBooking("reschedule", "not_found")
			return failure("Appointment not found"), nil
		case errors.Is(err, appointment.ErrInvalidTransition):
			s.metrics.ObserveBooking("reschedule", "invalid_state")
			return failure("This appointment is no longer active"), nil
		}
		return Result{}, err
	}

	s.enqueue(notify.Message{Kind: notify.KindReschedule, ClinicID: moved.ClinicID, AppointmentID: moved.ID})
	s.metrics.ObserveBooking("reschedule", "success")
	return Result{
		Success:     true,
		Message:     fmt.Sprintf("Appointment moved to %s at %s", date.Format("Monday, 2 January"), clock[:5]),
		Appointment: moved,
	}, nil
}

// UpcomingResult is the answer to a "when is my appointment" question.
type UpcomingResult struct {
	Found        bool                  `json:"found"`
	Message      string                `json:"message"`
	Appointments []appointment.Upcoming `json:"appointments"`
}

// ListUpcoming finds the caller's active appointments by phone number.
func (s *Service) ListUpcoming(ctx context.Context, clinicID uuid.UUID, phone string) (UpcomingResult, error) {
	normalized := patient.NormalizePhone(phone)
	if normalized == "" {
		return UpcomingResult{Message: "A phone number is required", Appointments: []appointment.Upcoming{}}, nil
	}

	pat, err := s.patients.Lookup(ctx, clinicID, normalized)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return UpcomingResult{Message: "No patient record for this phone number", Appointments: []appointment.Upcoming{}}, nil
		}
		return UpcomingResult{}, fmt.Errorf("booking: lookup patient: %w", err)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	appts, err := s.appts.ListUpcomingForPatient(ctx, clinicID, pat.ID, today)
	if err != nil {
		return UpcomingResult{}, err
	}
	if len(appts) == 0 {
		return UpcomingResult{Message: "No upcoming appointments", Appointments: []appointment.Upcoming{}}, nil
	}
	return UpcomingResult{
		Found:        true,
		Message:      fmt.Sprintf("Found %d upcoming appointment(s)", len(appts)),
		Appointments: appts,
	}, nil
}

// slotFitsDoctor checks the reschedule target against the doctor's working
// day.
func (s *Service) slotFitsDoctor(ctx context.Context, clinicID uuid.UUID, appt *appointment.Appointment, date time.Time, clock string) (bool, string, error) {
	doc, msg, err := s.loadActiveDoctor(ctx, clinicID, appt.DoctorID)
	if err != nil {
		return false, "", err
	}
	if msg != "" {
		return false, msg, nil
	}
	return s.fitsWorkingDay(doc, date, clock, appt.DurationMinutes)
}

// loadActiveDoctor resolves a doctor, reporting a speakable message when the
// doctor is missing or inactive.
func (s *Service) loadActiveDoctor(ctx context.Context, clinicID, doctorID uuid.UUID) (*doctor.Doctor, string, error) {
	doc, err := s.doctors.Get(ctx, clinicID, doctorID)
	if err != nil {
		if errors.Is(err, doctor.ErrNotFound) {
			return nil, "Doctor not found", nil
		}
		return nil, "", fmt.Errorf("booking: load doctor: %w", err)
	}
	if !doc.Active {
		return nil, "Doctor is not active", nil
	}
	return doc, "", nil
}

// fitsWorkingDay checks a target time against the doctor's working day: the
// day must be open and [start, start+duration) must sit inside the window and
// clear of breaks. Occupancy is not consulted here; ExistsActiveSlot and the
// unique index handle conflicts.
func (s *Service) fitsWorkingDay(doc *doctor.Doctor, date time.Time, clock string, durationMinutes int) (bool, string, error) {
	day, err := doc.ResolveDay(date)
	if err != nil {
		var cfgErr *schedule.ConfigError
		if errors.As(err, &cfgErr) {
			s.logger.Error("corrupt doctor schedule rejected",
				"error_kind", "schedule_config",
				"doctor_id", doc.ID,
				"error", err,
			)
			return false, "No available slots", nil
		}
		return false, "", err
	}
	if day.Closed() {
		return false, "Doctor not available on " + strings.ToLower(date.Weekday().String()), nil
	}

	start, err := schedule.ParseClock(clock)
	if err != nil {
		return false, fmt.Sprintf("%q is not a valid time", clock), nil
	}
	if durationMinutes <= 0 {
		durationMinutes = doc.SlotDurationMinutes
	}
	iv := schedule.Interval{Start: start, End: start + durationMinutes}
	if iv.Start < day.Window.Start || iv.End > day.Window.End {
		return false, "That time is outside working hours", nil
	}
	for _, br := range day.Breaks {
		if iv.Overlaps(br) {
			return false, "That time falls in a break", nil
		}
	}
	return true, "", nil
}

func (s *Service) resolveDuration(ctx context.Context, p BookParams, doc *doctor.Doctor) (int, error) {
	if p.AppointmentTypeID != nil {
		at, err := s.types.GetAppointmentType(ctx, p.ClinicID, *p.AppointmentTypeID)
		if err == nil && at.DurationMinutes > 0 {
			return at.DurationMinutes, nil
		}
		if err != nil && !errors.Is(err, clinic.ErrNotFound) {
			return 0, fmt.Errorf("booking: load appointment type: %w", err)
		}
	}
	return doc.SlotDurationMinutes, nil
}

// enqueue hands a notification to the workers. A full queue is logged and
// dropped; the booking result is already committed.
func (s *Service) enqueue(msg notify.Message) {
	if s.queue == nil {
		return
	}
	if !s.queue.Enqueue(msg) {
		s.logger.Warn("notification queue full, message dropped",
			"kind", msg.Kind,
			"appointment_id", msg.AppointmentID,
		)
	}
}

func failure(msg string) Result {
	return Result{Message: msg}
}

// takenMessage answers a booking that lost its slot. When the availability
// engine can still offer open times on the same date, they ride along so the
// caller can pick one in the same breath.
func (s *Service) takenMessage(ctx context.Context, clinicID, doctorID uuid.UUID, date time.Time, start string) string {
	const plain = "That time is already booked, please pick another slot"
	if s.checker == nil {
		return plain
	}
	avail, err := s.checker.CheckAvailability(ctx, clinicID, doctorID, date)
	if err != nil || len(avail.Slots) == 0 {
		return plain
	}
	shown := avail.Slots
	if len(shown) > 5 {
		shown = shown[:5]
	}
	return fmt.Sprintf("%s is already booked. Nearby options: %s", start, strings.Join(shown, ", "))
}
