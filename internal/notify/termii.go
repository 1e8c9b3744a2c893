package notify

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

const (
	defaultTermiiBaseURL = "https://v3.api.termii.com"

	// Termii delivery channels.
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// TermiiConfig controls how the Termii client behaves.
type TermiiConfig struct {
	BaseURL    string
	APIKey     string
	SenderID   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// TermiiClient wraps the Termii v3 messaging API for SMS and WhatsApp sends.
type TermiiClient struct {
	apiKey     string
	senderID   string
	baseURL    string
	httpClient *http.Client
}

// NewTermiiClient creates a configured client with sane defaults.
func NewTermiiClient(cfg TermiiConfig) (*TermiiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("termii: API key is required")
	}
	if strings.TrimSpace(cfg.SenderID) == "" {
		return nil, errors.New("termii: sender id is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultTermiiBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &TermiiClient{
		apiKey:     cfg.APIKey,
		senderID:   cfg.SenderID,
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// SendResult is the vendor acknowledgement of one send.
type SendResult struct {
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
	Balance   any    `json:"balance"`
}

// Send delivers text to a phone number over the given channel. The "generic"
// route is Termii's plain SMS channel; "whatsapp" delivers over WhatsApp with
// an automatic fallback handled vendor-side.
func (c *TermiiClient) Send(ctx context.Context, to, text, channel string) (*SendResult, error) {
	if strings.TrimSpace(to) == "" {
		return nil, errors.New("termii: recipient is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("termii: message text is required")
	}
	route := "generic"
	if channel == ChannelWhatsApp {
		route = "whatsapp"
	}
	body, err := json.Marshal(struct {
		To      string `json:"to"`
		From    string `json:"from"`
		SMS     string `json:"sms"`
		Type    string `json:"type"`
		Channel string `json:"channel"`
		APIKey  string `json:"api_key"`
	}{
		To:      strings.TrimPrefix(to, "+"),
		From:    c.senderID,
		SMS:     text,
		Type:    "plain",
		Channel: route,
		APIKey:  c.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("termii: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sms/send", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("termii: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("termii: send failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("termii: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("termii: send returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var out SendResult
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("termii: decode response: %w", err)
	}
	return &out, nil
}
