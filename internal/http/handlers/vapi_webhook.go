package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/calllog"
	"github.com/curavoice/voice-backend/internal/clinic"
	"github.com/curavoice/voice-backend/internal/idempotency"
	"github.com/curavoice/voice-backend/internal/observability/metrics"
	"github.com/curavoice/voice-backend/internal/tenancy"
	"github.com/curavoice/voice-backend/pkg/logging"
)

const maxWebhookBody = 1 << 20

// VapiClinicResolver maps an assistant to its clinic.
type VapiClinicResolver interface {
	Get(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
	GetByVapiAssistant(ctx context.Context, assistantID string) (*clinic.Clinic, error)
}

// CallLogger records finished calls.
type CallLogger interface {
	Insert(ctx context.Context, log calllog.CallLog) (uuid.UUID, error)
}

// VapiWebhookHandler receives Vapi server events: assistant tool calls during
// a conversation and the end-of-call report after hangup.
type VapiWebhookHandler struct {
	secret  string
	clinics VapiClinicResolver
	funcs   *FunctionRouter
	calls   CallLogger
	guard   *idempotency.Guard
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

// NewVapiWebhookHandler wires the Vapi webhook endpoint.
func NewVapiWebhookHandler(
	secret string,
	clinics VapiClinicResolver,
	funcs *FunctionRouter,
	calls CallLogger,
	guard *idempotency.Guard,
	logger *logging.Logger,
	m *metrics.BookingMetrics,
) *VapiWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &VapiWebhookHandler{
		secret:  secret,
		clinics: clinics,
		funcs:   funcs,
		calls:   calls,
		guard:   guard,
		logger:  logger,
		metrics: m,
	}
}

type vapiEnvelope struct {
	Message vapiMessage `json:"message"`
}

type vapiMessage struct {
	Type         string            `json:"type"`
	FunctionCall *vapiFunctionCall `json:"functionCall"`
	Call         vapiCall          `json:"call"`
	Assistant    vapiAssistant     `json:"assistant"`
	Transcript   string            `json:"transcript"`
	Summary      string            `json:"summary"`
	EndedReason  string            `json:"endedReason"`
	Cost         float64           `json:"cost"`
	StartedAt    *time.Time        `json:"startedAt"`
	EndedAt      *time.Time        `json:"endedAt"`
}

type vapiFunctionCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

type vapiCall struct {
	ID          string            `json:"id"`
	AssistantID string            `json:"assistantId"`
	Customer    vapiCustomer      `json:"customer"`
	Metadata    map[string]string `json:"metadata"`
	PhoneNumber vapiPhoneNumber   `json:"phoneNumber"`
}

type vapiCustomer struct {
	Number string `json:"number"`
}

type vapiPhoneNumber struct {
	Number string `json:"number"`
}

type vapiAssistant struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// Handle processes one Vapi delivery. Deliveries carry a shared secret
// header; anything else is rejected before the body is touched.
func (h *VapiWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if subtle.ConstantTimeCompare([]byte(r.Header.Get("x-vapi-secret")), []byte(h.secret)) != 1 || h.secret == "" {
		h.metrics.ObserveWebhookLatency("vapi", "unauthorized", time.Since(start).Seconds())
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}
	var env vapiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	msg := env.Message

	cl, err := h.resolveClinic(r.Context(), msg)
	if err != nil {
		h.logger.Warn("vapi webhook for unknown clinic",
			"assistant_id", msg.Call.AssistantID,
			"call_id", msg.Call.ID,
			"error", err,
		)
		h.metrics.ObserveWebhookLatency("vapi", "unknown_clinic", time.Since(start).Seconds())
		// 200 keeps the vendor from retrying a delivery we can never route.
		writeJSON(w, http.StatusOK, map[string]string{"result": "Clinic not found"})
		return
	}

	switch msg.Type {
	case "function-call":
		h.handleFunctionCall(w, r, cl, msg, start)
	case "end-of-call-report":
		h.handleEndOfCall(w, r, cl, msg, start)
	default:
		h.metrics.ObserveWebhookLatency("vapi", msg.Type, time.Since(start).Seconds())
		writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
	}
}

func (h *VapiWebhookHandler) handleFunctionCall(w http.ResponseWriter, r *http.Request, cl *clinic.Clinic, msg vapiMessage, start time.Time) {
	if msg.FunctionCall == nil {
		http.Error(w, "missing function call", http.StatusBadRequest)
		return
	}
	ctx := tenancy.WithClinicID(r.Context(), cl.ID)
	result, err := h.funcs.Dispatch(ctx, FunctionCall{
		ClinicID:    cl.ID,
		Name:        msg.FunctionCall.Name,
		Args:        msg.FunctionCall.Parameters,
		CallerPhone: msg.Call.Customer.Number,
	})
	h.metrics.ObserveWebhookLatency("vapi", "function-call", time.Since(start).Seconds())
	if err != nil {
		h.logger.Error("vapi function failed",
			"function", msg.FunctionCall.Name,
			"clinic_id", cl.ID,
			"call_id", msg.Call.ID,
			"error", err,
		)
		// The assistant reads this string to the patient.
		writeJSON(w, http.StatusOK, map[string]string{"result": "Sorry, something went wrong. Please try again."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (h *VapiWebhookHandler) handleEndOfCall(w http.ResponseWriter, r *http.Request, cl *clinic.Clinic, msg vapiMessage, start time.Time) {
	defer func() { h.metrics.ObserveWebhookLatency("vapi", "end-of-call-report", time.Since(start).Seconds()) }()

	first, err := h.guard.FirstSeen(r.Context(), "vapi:"+msg.Call.ID)
	if err != nil {
		h.logger.Warn("idempotency check failed, processing anyway", "call_id", msg.Call.ID, "error", err)
		first = true
	}
	if !first {
		writeJSON(w, http.StatusOK, map[string]string{"result": "duplicate"})
		return
	}

	duration := 0
	if msg.StartedAt != nil && msg.EndedAt != nil {
		duration = int(msg.EndedAt.Sub(*msg.StartedAt).Seconds())
	}
	_, err = h.calls.Insert(r.Context(), calllog.CallLog{
		ClinicID:        cl.ID,
		VendorCallID:    msg.Call.ID,
		Vendor:          "vapi",
		FromNumber:      msg.Call.Customer.Number,
		ToNumber:        msg.Call.PhoneNumber.Number,
		StartedAt:       msg.StartedAt,
		EndedAt:         msg.EndedAt,
		DurationSeconds: duration,
		Transcript:      msg.Transcript,
		Summary:         msg.Summary,
		Outcome:         msg.EndedReason,
		CostUSD:         msg.Cost,
	})
	if err != nil {
		h.logger.Error("call log insert failed", "call_id", msg.Call.ID, "error", err)
		// Still 200: the call is over, a retry will hit the idempotency guard.
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

// resolveClinic prefers the clinic id planted in assistant metadata and falls
// back to the assistant id mapping.
func (h *VapiWebhookHandler) resolveClinic(ctx context.Context, msg vapiMessage) (*clinic.Clinic, error) {
	raw := msg.Call.Metadata["clinic_id"]
	if raw == "" {
		raw = msg.Assistant.Metadata["clinic_id"]
	}
	if raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return h.clinics.Get(ctx, id)
		}
	}
	assistantID := msg.Call.AssistantID
	if assistantID == "" {
		assistantID = msg.Assistant.ID
	}
	return h.clinics.GetByVapiAssistant(ctx, assistantID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
