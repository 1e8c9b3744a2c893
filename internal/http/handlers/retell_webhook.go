package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/calllog"
	"github.com/curavoice/voice-backend/internal/clinic"
	"github.com/curavoice/voice-backend/internal/idempotency"
	"github.com/curavoice/voice-backend/internal/observability/metrics"
	"github.com/curavoice/voice-backend/internal/retell"
	"github.com/curavoice/voice-backend/internal/tenancy"
	"github.com/curavoice/voice-backend/pkg/logging"
)

// RetellClinicResolver maps agents and numbers to clinics.
type RetellClinicResolver interface {
	Get(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
	GetByRetellAgent(ctx context.Context, agentID string) (*clinic.Clinic, error)
	GetByPhoneNumber(ctx context.Context, number string) (*clinic.Clinic, error)
}

// RetellWebhookHandler receives Retell events: lifecycle webhooks signed with
// the API key, the inbound call hook that personalizes the greeting, and the
// per-clinic custom function endpoint the agent calls mid-conversation.
type RetellWebhookHandler struct {
	apiKey  string
	clinics RetellClinicResolver
	funcs   *FunctionRouter
	calls   CallLogger
	guard   *idempotency.Guard
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

// NewRetellWebhookHandler wires the Retell endpoints.
func NewRetellWebhookHandler(
	apiKey string,
	clinics RetellClinicResolver,
	funcs *FunctionRouter,
	calls CallLogger,
	guard *idempotency.Guard,
	logger *logging.Logger,
	m *metrics.BookingMetrics,
) *RetellWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RetellWebhookHandler{
		apiKey:  apiKey,
		clinics: clinics,
		funcs:   funcs,
		calls:   calls,
		guard:   guard,
		logger:  logger,
		metrics: m,
	}
}

type retellEvent struct {
	Event string     `json:"event"`
	Call  retellCall `json:"call"`
}

type retellCall struct {
	CallID           string         `json:"call_id"`
	AgentID          string         `json:"agent_id"`
	FromNumber       string         `json:"from_number"`
	ToNumber         string         `json:"to_number"`
	Direction        string         `json:"direction"`
	StartTimestamp   int64          `json:"start_timestamp"`
	EndTimestamp     int64          `json:"end_timestamp"`
	Transcript       string         `json:"transcript"`
	CallAnalysis     retellAnalysis `json:"call_analysis"`
	CallCost         retellCost     `json:"call_cost"`
	DisconnectReason string         `json:"disconnection_reason"`
}

type retellAnalysis struct {
	CallSummary string `json:"call_summary"`
}

type retellCost struct {
	CombinedCost float64 `json:"combined_cost"`
}

// HandleEvents processes call lifecycle webhooks. The signature covers the
// raw body, so it is verified before any parsing.
func (h *RetellWebhookHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}
	if !retell.VerifySignature(body, r.Header.Get(retell.SignatureHeader), h.apiKey) {
		h.metrics.ObserveWebhookLatency("retell", "unauthorized", time.Since(start).Seconds())
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var ev retellEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	defer func() { h.metrics.ObserveWebhookLatency("retell", ev.Event, time.Since(start).Seconds()) }()

	// call_ended carries timings; call_analyzed carries transcript and
	// summary. The log row is written once, on the richer event.
	if ev.Event != "call_analyzed" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	cl, err := h.clinics.GetByRetellAgent(r.Context(), ev.Call.AgentID)
	if err != nil {
		h.logger.Warn("retell event for unknown agent", "agent_id", ev.Call.AgentID, "call_id", ev.Call.CallID)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	first, err := h.guard.FirstSeen(r.Context(), "retell:"+ev.Call.CallID)
	if err != nil {
		h.logger.Warn("idempotency check failed, processing anyway", "call_id", ev.Call.CallID, "error", err)
		first = true
	}
	if !first {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	startedAt := millisTime(ev.Call.StartTimestamp)
	endedAt := millisTime(ev.Call.EndTimestamp)
	duration := 0
	if startedAt != nil && endedAt != nil {
		duration = int(endedAt.Sub(*startedAt).Seconds())
	}
	direction := ev.Call.Direction
	if direction == "" {
		direction = "inbound"
	}
	if _, err := h.calls.Insert(r.Context(), calllog.CallLog{
		ClinicID:        cl.ID,
		VendorCallID:    ev.Call.CallID,
		Vendor:          "retell",
		Direction:       direction,
		FromNumber:      ev.Call.FromNumber,
		ToNumber:        ev.Call.ToNumber,
		StartedAt:       startedAt,
		EndedAt:         endedAt,
		DurationSeconds: duration,
		Transcript:      ev.Call.Transcript,
		Summary:         ev.Call.CallAnalysis.CallSummary,
		Outcome:         ev.Call.DisconnectReason,
		CostUSD:         ev.Call.CallCost.CombinedCost,
	}); err != nil {
		h.logger.Error("call log insert failed", "call_id", ev.Call.CallID, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

type retellInboundEvent struct {
	Event       string            `json:"event"`
	CallInbound retellCallInbound `json:"call_inbound"`
}

type retellCallInbound struct {
	AgentID    string `json:"agent_id"`
	FromNumber string `json:"from_number"`
	ToNumber   string `json:"to_number"`
}

// HandleInbound answers Retell's inbound call hook with per-clinic dynamic
// variables so a shared agent greets with the right clinic identity.
func (h *RetellWebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}
	if !retell.VerifySignature(body, r.Header.Get(retell.SignatureHeader), h.apiKey) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}
	var ev retellInboundEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	defer func() { h.metrics.ObserveWebhookLatency("retell", "call_inbound", time.Since(start).Seconds()) }()

	cl, err := h.clinics.GetByPhoneNumber(r.Context(), ev.CallInbound.ToNumber)
	if err != nil {
		h.logger.Warn("inbound call to unknown number", "to_number", ev.CallInbound.ToNumber)
		writeJSON(w, http.StatusOK, map[string]any{"call_inbound": map[string]any{}})
		return
	}

	resp := map[string]any{
		"call_inbound": map[string]any{
			"dynamic_variables": map[string]string{
				"clinic_id":      cl.ID.String(),
				"clinic_name":    cl.Name,
				"clinic_phone":   cl.PhoneNumber,
				"clinic_address": cl.Address,
				"greeting":       cl.Greeting(),
			},
		},
	}
	if cl.RetellAgentID != "" {
		resp["call_inbound"].(map[string]any)["override_agent_id"] = cl.RetellAgentID
	}
	writeJSON(w, http.StatusOK, resp)
}

type retellFunctionRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
	Call retellCall     `json:"call"`
}

// HandleFunction serves the custom function URL configured per clinic:
// POST /webhooks/retell/functions/{clinicID}/{function}.
func (h *RetellWebhookHandler) HandleFunction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
	if err != nil {
		http.Error(w, "invalid clinic id", http.StatusBadRequest)
		return
	}
	function := chi.URLParam(r, "function")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}
	if !retell.VerifySignature(body, r.Header.Get(retell.SignatureHeader), h.apiKey) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}
	var req retellFunctionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if _, err := h.clinics.Get(r.Context(), clinicID); err != nil {
		http.Error(w, "clinic not found", http.StatusNotFound)
		return
	}

	ctx := tenancy.WithClinicID(r.Context(), clinicID)
	result, err := h.funcs.Dispatch(ctx, FunctionCall{
		ClinicID:    clinicID,
		Name:        function,
		Args:        req.Args,
		CallerPhone: req.Call.FromNumber,
	})
	h.metrics.ObserveWebhookLatency("retell", "function", time.Since(start).Seconds())
	if err != nil {
		h.logger.Error("retell function failed",
			"function", function,
			"clinic_id", clinicID,
			"call_id", req.Call.CallID,
			"error", err,
		)
		writeJSON(w, http.StatusOK, spoken(false, "Sorry, something went wrong. Please try again."))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func millisTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
