package retell

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/create-agent" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key_123" {
			t.Errorf("auth = %s", auth)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"agent_id": "agent_1", "agent_name": "Sunrise Clinic"})
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, APIKey: "key_123"})
	if err != nil {
		t.Fatal(err)
	}

	agent, err := client.CreateAgent(context.Background(), CreateAgentParams{
		AgentName:      "Sunrise Clinic",
		ResponseEngine: ResponseEngine{Type: "retell-llm", LLMID: "llm_1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agent.AgentID != "agent_1" {
		t.Errorf("agent id = %s", agent.AgentID)
	}
}

func TestCreatePhoneCallValidation(t *testing.T) {
	client, err := New(Config{APIKey: "key_123"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.CreatePhoneCall(context.Background(), CreatePhoneCallParams{ToNumber: "+15550001111"}); err == nil {
		t.Fatal("expected error for missing from number")
	}
}

func TestVendorErrorSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid voice"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, APIKey: "key_123"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.CreateAgent(context.Background(), CreateAgentParams{AgentName: "x"}); err == nil {
		t.Fatal("expected error on 422 response")
	}
}
