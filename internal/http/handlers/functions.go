package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/availability"
	"github.com/curavoice/voice-backend/internal/booking"
	"github.com/curavoice/voice-backend/internal/clinic"
	"github.com/curavoice/voice-backend/internal/doctor"
	"github.com/curavoice/voice-backend/internal/tenancy"
	"github.com/curavoice/voice-backend/pkg/logging"
)

// Booker is the slice of the booking service the voice functions call.
type Booker interface {
	Book(ctx context.Context, p booking.BookParams) (booking.Result, error)
	Cancel(ctx context.Context, clinicID, appointmentID uuid.UUID, reason string) (booking.Result, error)
	Reschedule(ctx context.Context, clinicID, appointmentID uuid.UUID, newDate, newTime string) (booking.Result, error)
	ListUpcoming(ctx context.Context, clinicID uuid.UUID, phone string) (booking.UpcomingResult, error)
}

// AvailabilityChecker answers slot queries.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, clinicID, doctorID uuid.UUID, date time.Time) (availability.Result, error)
}

// DoctorLister lists a clinic's bookable doctors.
type DoctorLister interface {
	ListActive(ctx context.Context, clinicID uuid.UUID) ([]doctor.Doctor, error)
}

// ClinicInfoProvider backs the get_clinic_info function.
type ClinicInfoProvider interface {
	Get(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
	ListAppointmentTypes(ctx context.Context, clinicID uuid.UUID) ([]clinic.AppointmentType, error)
}

// FunctionCall is one tool invocation from a voice assistant. CallerPhone is
// the number the patient is calling from; functions fall back to it when the
// assistant did not collect a phone explicitly.
type FunctionCall struct {
	ClinicID    uuid.UUID
	Name        string
	Args        map[string]any
	CallerPhone string
}

// FunctionRouter dispatches assistant tool calls to the domain services. Both
// voice vendors share it; only payload framing differs per vendor.
type FunctionRouter struct {
	booker  Booker
	checker AvailabilityChecker
	doctors DoctorLister
	clinics ClinicInfoProvider
	logger  *logging.Logger
}

// NewFunctionRouter creates a router over the domain services.
func NewFunctionRouter(booker Booker, checker AvailabilityChecker, doctors DoctorLister, clinics ClinicInfoProvider, logger *logging.Logger) *FunctionRouter {
	if logger == nil {
		logger = logging.Default()
	}
	return &FunctionRouter{booker: booker, checker: checker, doctors: doctors, clinics: clinics, logger: logger}
}

// Dispatch runs one function and returns a JSON-encodable result the
// assistant can speak from. Unknown functions and bad arguments produce
// speakable failure payloads, not errors; errors are reserved for
// infrastructure faults. A call without a clinic falls back to the clinic the
// webhook layer placed in the context.
func (fr *FunctionRouter) Dispatch(ctx context.Context, call FunctionCall) (any, error) {
	if call.ClinicID == uuid.Nil {
		if id, ok := tenancy.ClinicIDFromContext(ctx); ok {
			call.ClinicID = id
		}
	}

	// Some assistant configs prefix tool names with "run-".
	name := strings.TrimPrefix(call.Name, "run-")
	name = strings.ReplaceAll(name, "-", "_")

	switch name {
	case "list_doctors":
		return fr.listDoctors(ctx, call)
	case "check_availability":
		return fr.checkAvailability(ctx, call)
	case "book_appointment":
		return fr.bookAppointment(ctx, call)
	case "cancel_appointment":
		return fr.cancelAppointment(ctx, call)
	case "reschedule_appointment":
		return fr.rescheduleAppointment(ctx, call)
	case "get_upcoming_appointments":
		return fr.upcomingAppointments(ctx, call)
	case "get_clinic_info":
		return fr.clinicInfo(ctx, call)
	default:
		fr.logger.Warn("unknown voice function", "function", call.Name, "clinic_id", call.ClinicID)
		return spoken(false, fmt.Sprintf("Unknown function %q", call.Name)), nil
	}
}

type spokenResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func spoken(success bool, message string) spokenResult {
	return spokenResult{Success: success, Message: message}
}

type doctorSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
}

func (fr *FunctionRouter) listDoctors(ctx context.Context, call FunctionCall) (any, error) {
	docs, err := fr.doctors.ListActive(ctx, call.ClinicID)
	if err != nil {
		return nil, err
	}
	out := make([]doctorSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, doctorSummary{ID: d.ID.String(), Name: d.DisplayName(), Specialty: d.Specialty})
	}
	return map[string]any{"doctors": out}, nil
}

func (fr *FunctionRouter) checkAvailability(ctx context.Context, call FunctionCall) (any, error) {
	doctorID, msg, err := fr.resolveDoctor(ctx, call)
	if err != nil {
		return nil, err
	}
	if msg != "" {
		return spoken(false, msg), nil
	}
	date, ok := parseArgDate(call.Args)
	if !ok {
		return spoken(false, "A date in YYYY-MM-DD format is required"), nil
	}
	res, err := fr.checker.CheckAvailability(ctx, call.ClinicID, doctorID, date)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (fr *FunctionRouter) bookAppointment(ctx context.Context, call FunctionCall) (any, error) {
	doctorID, msg, err := fr.resolveDoctor(ctx, call)
	if err != nil {
		return nil, err
	}
	if msg != "" {
		return spoken(false, msg), nil
	}
	phone := argString(call.Args, "patient_phone")
	if phone == "" {
		phone = call.CallerPhone
	}
	res, err := fr.booker.Book(ctx, booking.BookParams{
		ClinicID:     call.ClinicID,
		DoctorID:     doctorID,
		PatientName:  argString(call.Args, "patient_name"),
		PatientPhone: phone,
		Date:         argString(call.Args, "date"),
		Time:         argString(call.Args, "time"),
		Reason:       argString(call.Args, "reason"),
		CreatedVia:   "ai_voice",
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (fr *FunctionRouter) cancelAppointment(ctx context.Context, call FunctionCall) (any, error) {
	apptID, msg, err := fr.resolveAppointment(ctx, call)
	if err != nil {
		return nil, err
	}
	if msg != "" {
		return spoken(false, msg), nil
	}
	res, err := fr.booker.Cancel(ctx, call.ClinicID, apptID, argString(call.Args, "reason"))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (fr *FunctionRouter) rescheduleAppointment(ctx context.Context, call FunctionCall) (any, error) {
	apptID, msg, err := fr.resolveAppointment(ctx, call)
	if err != nil {
		return nil, err
	}
	if msg != "" {
		return spoken(false, msg), nil
	}
	res, err := fr.booker.Reschedule(ctx, call.ClinicID, apptID,
		argString(call.Args, "new_date"), argString(call.Args, "new_time"))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (fr *FunctionRouter) upcomingAppointments(ctx context.Context, call FunctionCall) (any, error) {
	phone := argString(call.Args, "phone")
	if phone == "" {
		phone = call.CallerPhone
	}
	res, err := fr.booker.ListUpcoming(ctx, call.ClinicID, phone)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type serviceSummary struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price,omitempty"`
}

// clinicInfo answers general "tell me about the clinic" questions: address,
// spoken languages, the service catalog and the doctor roster in one payload.
func (fr *FunctionRouter) clinicInfo(ctx context.Context, call FunctionCall) (any, error) {
	if fr.clinics == nil {
		return spoken(false, "Clinic information is not available right now"), nil
	}
	cl, err := fr.clinics.Get(ctx, call.ClinicID)
	if err != nil {
		if errors.Is(err, clinic.ErrNotFound) {
			return spoken(false, "Clinic not found"), nil
		}
		return nil, err
	}
	types, err := fr.clinics.ListAppointmentTypes(ctx, call.ClinicID)
	if err != nil {
		return nil, err
	}
	docs, err := fr.doctors.ListActive(ctx, call.ClinicID)
	if err != nil {
		return nil, err
	}

	services := make([]serviceSummary, 0, len(types))
	for _, at := range types {
		services = append(services, serviceSummary{
			ID:              at.ID.String(),
			Name:            at.Name,
			DurationMinutes: at.DurationMinutes,
			Price:           at.Price,
		})
	}
	roster := make([]doctorSummary, 0, len(docs))
	for _, d := range docs {
		roster = append(roster, doctorSummary{ID: d.ID.String(), Name: d.DisplayName(), Specialty: d.Specialty})
	}
	return map[string]any{
		"name":      cl.Name,
		"address":   cl.Address,
		"city":      cl.City,
		"phone":     cl.PhoneNumber,
		"languages": cl.SupportedLanguages,
		"services":  services,
		"doctors":   roster,
	}, nil
}

// resolveDoctor accepts either a doctor_id or a doctor_name argument. Name
// matching is case-insensitive substring over the active roster; an ambiguous
// name is reported back so the assistant can ask the patient to pick.
func (fr *FunctionRouter) resolveDoctor(ctx context.Context, call FunctionCall) (uuid.UUID, string, error) {
	if raw := argString(call.Args, "doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Sprintf("%q is not a valid doctor id", raw), nil
		}
		return id, "", nil
	}

	name := argString(call.Args, "doctor_name")
	if name == "" {
		return uuid.Nil, "A doctor is required", nil
	}
	docs, err := fr.doctors.ListActive(ctx, call.ClinicID)
	if err != nil {
		return uuid.Nil, "", err
	}
	needle := strings.ToLower(name)
	var matches []doctor.Doctor
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.Name), needle) || strings.Contains(strings.ToLower(d.DisplayName()), needle) {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return uuid.Nil, fmt.Sprintf("No doctor named %q at this clinic", name), nil
	case 1:
		return matches[0].ID, "", nil
	default:
		names := make([]string, 0, len(matches))
		for _, d := range matches {
			names = append(names, d.DisplayName())
		}
		return uuid.Nil, "Which doctor did you mean: " + strings.Join(names, ", ") + "?", nil
	}
}

// resolveAppointment accepts an appointment_id, or falls back to the caller's
// single upcoming appointment when the id was not collected.
func (fr *FunctionRouter) resolveAppointment(ctx context.Context, call FunctionCall) (uuid.UUID, string, error) {
	if raw := argString(call.Args, "appointment_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Sprintf("%q is not a valid appointment id", raw), nil
		}
		return id, "", nil
	}

	phone := argString(call.Args, "phone")
	if phone == "" {
		phone = call.CallerPhone
	}
	if phone == "" {
		return uuid.Nil, "An appointment id or phone number is required", nil
	}
	upcoming, err := fr.booker.ListUpcoming(ctx, call.ClinicID, phone)
	if err != nil {
		return uuid.Nil, "", err
	}
	switch len(upcoming.Appointments) {
	case 0:
		return uuid.Nil, "No upcoming appointments for this phone number", nil
	case 1:
		return upcoming.Appointments[0].ID, "", nil
	default:
		return uuid.Nil, fmt.Sprintf("You have %d upcoming appointments, which one do you mean?", len(upcoming.Appointments)), nil
	}
}

func argString(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func parseArgDate(args map[string]any) (time.Time, bool) {
	raw := argString(args, "date")
	if raw == "" {
		return time.Time{}, false
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
