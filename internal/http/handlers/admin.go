package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/clinic"
	"github.com/curavoice/voice-backend/internal/retell"
	"github.com/curavoice/voice-backend/internal/vapi"
	"github.com/curavoice/voice-backend/pkg/logging"
)

// ClinicAdminStore is the clinic store surface the admin endpoints use.
type ClinicAdminStore interface {
	Get(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
	SetVapiAssistant(ctx context.Context, id uuid.UUID, assistantID string) error
	SetRetellAgent(ctx context.Context, id uuid.UUID, agentID string) error
	SetPhoneNumber(ctx context.Context, id uuid.UUID, number string) error
}

// AssistantProvisioner provisions Vapi assistants.
type AssistantProvisioner interface {
	CreateAssistant(ctx context.Context, cl *clinic.Clinic) (*vapi.Assistant, error)
	UpdateAssistant(ctx context.Context, assistantID string, cl *clinic.Clinic) (*vapi.Assistant, error)
}

// AgentProvisioner provisions Retell agents and numbers.
type AgentProvisioner interface {
	CreateAgent(ctx context.Context, p retell.CreateAgentParams) (*retell.Agent, error)
	CreatePhoneNumber(ctx context.Context, p retell.CreatePhoneNumberParams) (*retell.PhoneNumber, error)
}

// SweepRunner triggers one reminder pass.
type SweepRunner interface {
	Sweep(ctx context.Context) (int, error)
}

// AdminHandler serves the JWT-protected provisioning and operations
// endpoints.
type AdminHandler struct {
	clinics        ClinicAdminStore
	assistants     AssistantProvisioner
	agents         AgentProvisioner
	sweeper        SweepRunner
	webhookBaseURL string
	logger         *logging.Logger
}

// NewAdminHandler wires the admin endpoints. Vendor clients may be nil when a
// deployment only uses one vendor.
func NewAdminHandler(
	clinics ClinicAdminStore,
	assistants AssistantProvisioner,
	agents AgentProvisioner,
	sweeper SweepRunner,
	webhookBaseURL string,
	logger *logging.Logger,
) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{
		clinics:        clinics,
		assistants:     assistants,
		agents:         agents,
		sweeper:        sweeper,
		webhookBaseURL: webhookBaseURL,
		logger:         logger,
	}
}

// ProvisionVapi handles POST /admin/clinics/{clinicID}/provision/vapi. It
// creates the clinic's assistant, or pushes the current prompt to an existing
// one.
func (h *AdminHandler) ProvisionVapi(w http.ResponseWriter, r *http.Request) {
	if h.assistants == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "vapi is not configured"})
		return
	}
	clinicID, ok := pathUUID(w, r, "clinicID")
	if !ok {
		return
	}
	cl, err := h.clinics.Get(r.Context(), clinicID)
	if err != nil {
		h.clinicError(w, r, err)
		return
	}

	var asst *vapi.Assistant
	if cl.VapiAssistantID != "" {
		asst, err = h.assistants.UpdateAssistant(r.Context(), cl.VapiAssistantID, cl)
	} else {
		asst, err = h.assistants.CreateAssistant(r.Context(), cl)
	}
	if err != nil {
		h.logger.Error("vapi provisioning failed", "clinic_id", clinicID, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "assistant provisioning failed"})
		return
	}
	if err := h.clinics.SetVapiAssistant(r.Context(), clinicID, asst.ID); err != nil {
		h.logger.Error("recording assistant id failed", "clinic_id", clinicID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"assistant_id": asst.ID})
}

type provisionRetellRequest struct {
	VoiceID  string `json:"voice_id"`
	LLMID    string `json:"llm_id"`
	AreaCode int    `json:"area_code"`
}

// ProvisionRetell handles POST /admin/clinics/{clinicID}/provision/retell. It
// creates an agent pointed at the clinic's function endpoint and binds an
// inbound number to it.
func (h *AdminHandler) ProvisionRetell(w http.ResponseWriter, r *http.Request) {
	if h.agents == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "retell is not configured"})
		return
	}
	clinicID, ok := pathUUID(w, r, "clinicID")
	if !ok {
		return
	}
	var req provisionRetellRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	cl, err := h.clinics.Get(r.Context(), clinicID)
	if err != nil {
		h.clinicError(w, r, err)
		return
	}

	agent, err := h.agents.CreateAgent(r.Context(), retell.CreateAgentParams{
		AgentName:      cl.Name,
		VoiceID:        req.VoiceID,
		Language:       cl.DefaultLanguage,
		WebhookURL:     fmt.Sprintf("%s/webhooks/retell/functions/%s", h.webhookBaseURL, clinicID),
		ResponseEngine: retell.ResponseEngine{Type: "retell-llm", LLMID: req.LLMID},
	})
	if err != nil {
		h.logger.Error("retell agent provisioning failed", "clinic_id", clinicID, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "agent provisioning failed"})
		return
	}
	if err := h.clinics.SetRetellAgent(r.Context(), clinicID, agent.AgentID); err != nil {
		h.logger.Error("recording agent id failed", "clinic_id", clinicID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	number, err := h.agents.CreatePhoneNumber(r.Context(), retell.CreatePhoneNumberParams{
		InboundAgentID: agent.AgentID,
		AreaCode:       req.AreaCode,
		Nickname:       cl.Name,
	})
	if err != nil {
		// Agent exists but has no number yet; report it so the operator can retry.
		h.logger.Error("retell number provisioning failed", "clinic_id", clinicID, "agent_id", agent.AgentID, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"agent_id": agent.AgentID,
			"error":    "number provisioning failed",
		})
		return
	}
	if err := h.clinics.SetPhoneNumber(r.Context(), clinicID, number.PhoneNumber); err != nil {
		h.logger.Error("recording phone number failed", "clinic_id", clinicID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"agent_id":     agent.AgentID,
		"phone_number": number.PhoneNumber,
	})
}

// RunReminders handles POST /admin/reminders/run for manual sweeps.
func (h *AdminHandler) RunReminders(w http.ResponseWriter, r *http.Request) {
	queued, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		h.logger.Error("manual reminder sweep failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sweep failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"queued": queued})
}

func (h *AdminHandler) clinicError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, clinic.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "clinic not found"})
		return
	}
	h.logger.Error("clinic load failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
