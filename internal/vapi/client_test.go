package vapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/clinic"
)

func sampleClinic() *clinic.Clinic {
	return &clinic.Clinic{
		ID:                 uuid.New(),
		Name:               "Sunrise Clinic",
		City:               "Lagos",
		PhoneNumber:        "+2341234567",
		SupportedLanguages: []string{"en", "yo", "ha"},
	}
}

func TestCreateAssistant(t *testing.T) {
	cl := sampleClinic()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/assistant" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key_123" {
			t.Errorf("auth = %s", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "asst_1", "name": "Sunrise Clinic Receptionist"})
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, APIKey: "key_123", WebhookURL: "https://api.example.com/webhooks/vapi", WebhookSecret: "shh"})
	if err != nil {
		t.Fatal(err)
	}

	asst, err := client.CreateAssistant(context.Background(), cl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asst.ID != "asst_1" {
		t.Errorf("id = %s", asst.ID)
	}

	meta, _ := got["metadata"].(map[string]any)
	if meta["clinic_id"] != cl.ID.String() {
		t.Errorf("metadata clinic_id = %v", meta["clinic_id"])
	}
	if got["serverUrlSecret"] != "shh" {
		t.Errorf("serverUrlSecret = %v", got["serverUrlSecret"])
	}
}

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt(sampleClinic())

	for _, want := range []string{"Sunrise Clinic", "Lagos", "YYYY-MM-DD", "+2341234567", "en, yo, ha"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(prompt, "Never give medical advice") {
		t.Error("prompt missing the medical advice guardrail")
	}
}

func TestUpdateAssistantRequiresID(t *testing.T) {
	client, err := New(Config{APIKey: "key_123"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.UpdateAssistant(context.Background(), "", sampleClinic()); err == nil {
		t.Fatal("expected error for missing assistant id")
	}
}
