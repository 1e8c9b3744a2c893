// Package vapi wraps the Vapi voice API: assistant provisioning and the
// system prompt handed to a clinic's assistant.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/curavoice/voice-backend/internal/clinic"
)

const defaultBaseURL = "https://api.vapi.ai"

// Config controls how the Vapi client behaves.
type Config struct {
	BaseURL       string
	APIKey        string
	WebhookURL    string
	WebhookSecret string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Client wraps the Vapi REST endpoints the platform uses.
type Client struct {
	apiKey        string
	baseURL       string
	webhookURL    string
	webhookSecret string
	httpClient    *http.Client
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("vapi: API key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiKey:        cfg.APIKey,
		baseURL:       baseURL,
		webhookURL:    cfg.WebhookURL,
		webhookSecret: cfg.WebhookSecret,
		httpClient:    httpClient,
	}, nil
}

// Assistant is a Vapi voice assistant.
type Assistant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FirstMessage string `json:"firstMessage"`
}

type assistantPayload struct {
	Name            string            `json:"name"`
	FirstMessage    string            `json:"firstMessage"`
	Model           modelPayload      `json:"model"`
	ServerURL       string            `json:"serverUrl,omitempty"`
	ServerURLSecret string            `json:"serverUrlSecret,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

type modelPayload struct {
	Provider string           `json:"provider"`
	Model    string           `json:"model"`
	Messages []messagePayload `json:"messages"`
}

type messagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CreateAssistant provisions an assistant for the clinic. The clinic id rides
// in the assistant metadata so webhook deliveries can be routed back to their
// tenant.
func (c *Client) CreateAssistant(ctx context.Context, cl *clinic.Clinic) (*Assistant, error) {
	var out Assistant
	if err := c.doJSON(ctx, http.MethodPost, "/assistant", c.payload(cl), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAssistant pushes the clinic's current prompt and greeting to an
// existing assistant.
func (c *Client) UpdateAssistant(ctx context.Context, assistantID string, cl *clinic.Clinic) (*Assistant, error) {
	if assistantID == "" {
		return nil, errors.New("vapi: assistant id is required")
	}
	var out Assistant
	if err := c.doJSON(ctx, http.MethodPatch, "/assistant/"+assistantID, c.payload(cl), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) payload(cl *clinic.Clinic) assistantPayload {
	return assistantPayload{
		Name:            cl.Name + " Receptionist",
		FirstMessage:    cl.Greeting(),
		Model: modelPayload{
			Provider: "openai",
			Model:    "gpt-4o",
			Messages: []messagePayload{{Role: "system", Content: SystemPrompt(cl)}},
		},
		ServerURL:       c.webhookURL,
		ServerURLSecret: c.webhookSecret,
		Metadata:        map[string]string{"clinic_id": cl.ID.String()},
	}
}

// SystemPrompt builds the assistant's standing instructions from the clinic
// profile.
func SystemPrompt(cl *clinic.Clinic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the virtual receptionist for %s", cl.Name)
	if cl.City != "" {
		fmt.Fprintf(&b, " in %s", cl.City)
	}
	b.WriteString(".\n\n")
	b.WriteString("You help patients check doctor availability, book, reschedule and cancel appointments, and look up their upcoming appointments.\n")
	b.WriteString("Always confirm the doctor, date and time back to the patient before booking.\n")
	b.WriteString("Dates are spoken naturally but passed to functions as YYYY-MM-DD; times as HH:MM in 24-hour format.\n")
	if len(cl.SupportedLanguages) > 1 {
		fmt.Fprintf(&b, "Respond in the caller's language when it is one of: %s.\n", strings.Join(cl.SupportedLanguages, ", "))
	}
	if cl.PhoneNumber != "" {
		fmt.Fprintf(&b, "For anything you cannot handle, offer the front desk number %s.\n", cl.PhoneNumber)
	}
	b.WriteString("Never give medical advice; booking and scheduling only.")
	return b.String()
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("vapi: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("vapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("vapi: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vapi: %s %s returned status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("vapi: decode response: %w", err)
	}
	return nil
}
