package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/booking"
	"github.com/curavoice/voice-backend/pkg/logging"
)

// APIHandler exposes the booking operations over REST for clinic dashboards
// and integrations. The voice flow and this API share the same services, so
// behavior and messages match what the assistant says.
type APIHandler struct {
	booker  Booker
	checker AvailabilityChecker
	doctors DoctorLister
	logger  *logging.Logger
}

// NewAPIHandler wires the REST endpoints.
func NewAPIHandler(booker Booker, checker AvailabilityChecker, doctors DoctorLister, logger *logging.Logger) *APIHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &APIHandler{booker: booker, checker: checker, doctors: doctors, logger: logger}
}

// ListDoctors handles GET /api/v1/clinics/{clinicID}/doctors.
func (h *APIHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := pathUUID(w, r, "clinicID")
	if !ok {
		return
	}
	docs, err := h.doctors.ListActive(r.Context(), clinicID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	out := make([]doctorSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, doctorSummary{ID: d.ID.String(), Name: d.DisplayName(), Specialty: d.Specialty})
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": out})
}

// GetAvailability handles
// GET /api/v1/clinics/{clinicID}/doctors/{doctorID}/availability?date=YYYY-MM-DD.
func (h *APIHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := pathUUID(w, r, "clinicID")
	if !ok {
		return
	}
	doctorID, ok := pathUUID(w, r, "doctorID")
	if !ok {
		return
	}
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		badRequest(w, "date query parameter must be YYYY-MM-DD")
		return
	}
	res, err := h.checker.CheckAvailability(r.Context(), clinicID, doctorID, date)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type bookRequest struct {
	DoctorID          string `json:"doctor_id"`
	PatientName       string `json:"patient_name"`
	PatientPhone      string `json:"patient_phone"`
	Date              string `json:"date"`
	Time              string `json:"time"`
	Reason            string `json:"reason"`
	AppointmentTypeID string `json:"appointment_type_id"`
}

// CreateAppointment handles POST /api/v1/clinics/{clinicID}/appointments.
func (h *APIHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := pathUUID(w, r, "clinicID")
	if !ok {
		return
	}
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		badRequest(w, "doctor_id must be a UUID")
		return
	}
	var typeID *uuid.UUID
	if req.AppointmentTypeID != "" {
		id, err := uuid.Parse(req.AppointmentTypeID)
		if err != nil {
			badRequest(w, "appointment_type_id must be a UUID")
			return
		}
		typeID = &id
	}

	res, err := h.booker.Book(r.Context(), booking.BookParams{
		ClinicID:          clinicID,
		DoctorID:          doctorID,
		PatientName:       req.PatientName,
		PatientPhone:      req.PatientPhone,
		Date:              req.Date,
		Time:              req.Time,
		Reason:            req.Reason,
		AppointmentTypeID: typeID,
		CreatedVia:        "api",
	})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !res.Success {
		status = http.StatusConflict
	}
	writeJSON(w, status, res)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelAppointment handles
// POST /api/v1/clinics/{clinicID}/appointments/{appointmentID}/cancel.
func (h *APIHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := pathUUID(w, r, "clinicID")
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(w, r, "appointmentID")
	if !ok {
		return
	}
	var req cancelRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	res, err := h.booker.Cancel(r.Context(), clinicID, appointmentID, req.Reason)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, cancelStatus(res), res)
}

type rescheduleRequest struct {
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
}

// RescheduleAppointment handles
// PATCH /api/v1/clinics/{clinicID}/appointments/{appointmentID}.
func (h *APIHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := pathUUID(w, r, "clinicID")
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(w, r, "appointmentID")
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	res, err := h.booker.Reschedule(r.Context(), clinicID, appointmentID, req.NewDate, req.NewTime)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, cancelStatus(res), res)
}

// ListUpcoming handles
// GET /api/v1/clinics/{clinicID}/patients/upcoming?phone=....
func (h *APIHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := pathUUID(w, r, "clinicID")
	if !ok {
		return
	}
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		badRequest(w, "phone query parameter is required")
		return
	}
	res, err := h.booker.ListUpcoming(r.Context(), clinicID, phone)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func cancelStatus(res booking.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Message {
	case "Appointment not found":
		return http.StatusNotFound
	default:
		return http.StatusConflict
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}
