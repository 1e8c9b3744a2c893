// Package retell wraps the Retell voice API: agent provisioning, phone
// numbers, outbound calls and webhook signature verification.
package retell

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
)

const defaultBaseURL = "https://api.retellai.com"

// Config controls how the Retell client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client wraps the Retell REST endpoints the platform uses.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("retell: API key is required")
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
	return &Client{apiKey: cfg.APIKey, baseURL: baseURL, httpClient: httpClient}, nil
}

// APIKey exposes the key for webhook signature checks.
func (c *Client) APIKey() string {
	return c.apiKey
}

// Agent is a Retell voice agent.
type Agent struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	VoiceID   string `json:"voice_id"`
	Language  string `json:"language"`
}

// CreateAgentParams provisions a clinic-scoped agent.
type CreateAgentParams struct {
	AgentName      string         `json:"agent_name"`
	VoiceID        string         `json:"voice_id,omitempty"`
	Language       string         `json:"language,omitempty"`
	WebhookURL     string         `json:"webhook_url,omitempty"`
	ResponseEngine ResponseEngine `json:"response_engine"`
}

// ResponseEngine points an agent at its conversation engine.
type ResponseEngine struct {
	Type  string `json:"type"`
	LLMID string `json:"llm_id,omitempty"`
}

// CreateAgent provisions a new agent.
func (c *Client) CreateAgent(ctx context.Context, p CreateAgentParams) (*Agent, error) {
	var out Agent
	if err := c.doJSON(ctx, http.MethodPost, "/create-agent", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAgent patches an existing agent.
func (c *Client) UpdateAgent(ctx context.Context, agentID string, p CreateAgentParams) (*Agent, error) {
	if agentID == "" {
		return nil, errors.New("retell: agent id is required")
	}
	var out Agent
	if err := c.doJSON(ctx, http.MethodPatch, "/update-agent/"+agentID, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PhoneNumber is a Retell-managed inbound number.
type PhoneNumber struct {
	PhoneNumber    string `json:"phone_number"`
	InboundAgentID string `json:"inbound_agent_id"`
}

// CreatePhoneNumberParams buys a number and binds it to an agent.
type CreatePhoneNumberParams struct {
	InboundAgentID string `json:"inbound_agent_id"`
	AreaCode       int    `json:"area_code,omitempty"`
	Nickname       string `json:"nickname,omitempty"`
}

// CreatePhoneNumber provisions an inbound number for an agent.
func (c *Client) CreatePhoneNumber(ctx context.Context, p CreatePhoneNumberParams) (*PhoneNumber, error) {
	if p.InboundAgentID == "" {
		return nil, errors.New("retell: inbound agent id is required")
	}
	var out PhoneNumber
	if err := c.doJSON(ctx, http.MethodPost, "/create-phone-number", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Call is a Retell phone call.
type Call struct {
	CallID string `json:"call_id"`
	Status string `json:"call_status"`
}

// CreatePhoneCallParams starts an outbound call.
type CreatePhoneCallParams struct {
	FromNumber      string            `json:"from_number"`
	ToNumber        string            `json:"to_number"`
	OverrideAgentID string            `json:"override_agent_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// CreatePhoneCall places an outbound call.
func (c *Client) CreatePhoneCall(ctx context.Context, p CreatePhoneCallParams) (*Call, error) {
	if p.FromNumber == "" || p.ToNumber == "" {
		return nil, errors.New("retell: from and to numbers are required")
	}
	var out Call
	if err := c.doJSON(ctx, http.MethodPost, "/v2/create-phone-call", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("retell: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("retell: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("retell: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("retell: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("retell: %s %s returned status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("retell: decode response: %w", err)
	}
	return nil
}
