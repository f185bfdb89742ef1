package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.telnyx.com/v2"

// TelnyxClient talks to the Telnyx Call Control REST API.
// One static API key per process; credentials never leave this package.
type TelnyxClient struct {
	apiKey       string
	connectionID string
	baseURL      string

	httpClient *http.Client
	log        *slog.Logger
}

type TelnyxOption func(*TelnyxClient)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(u string) TelnyxOption {
	return func(c *TelnyxClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) TelnyxOption {
	return func(c *TelnyxClient) { c.httpClient = h }
}

func NewTelnyxClient(apiKey, connectionID string, log *slog.Logger, opts ...TelnyxOption) *TelnyxClient {
	if log == nil {
		log = slog.Default()
	}
	c := &TelnyxClient{
		apiKey:       apiKey,
		connectionID: connectionID,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TelnyxClient) Name() string { return "telnyx" }

// APIError is a non-2xx response from the call-control API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telephony: api error (status %d): %s", e.StatusCode, e.Message)
}

type dialPayload struct {
	ConnectionID string `json:"connection_id"`
	To           string `json:"to"`
	From         string `json:"from"`
}

type dialResponse struct {
	Data struct {
		CallControlID string `json:"call_control_id"`
	} `json:"data"`
}

func (c *TelnyxClient) Dial(ctx context.Context, req DialRequest) (DialResult, error) {
	var resp dialResponse
	err := c.post(ctx, "/calls", dialPayload{
		ConnectionID: c.connectionID,
		To:           req.To,
		From:         req.From,
	}, &resp)
	if err != nil {
		return DialResult{}, fmt.Errorf("dial %s: %w", req.To, err)
	}
	if resp.Data.CallControlID == "" {
		return DialResult{}, fmt.Errorf("dial %s: provider returned no call_control_id", req.To)
	}
	c.log.Info("call initiated", "call_control_id", resp.Data.CallControlID, "to", req.To)
	return DialResult{CallControlID: resp.Data.CallControlID}, nil
}

func (c *TelnyxClient) PlaybackStart(ctx context.Context, callControlID, audioURL string) error {
	path := fmt.Sprintf("/calls/%s/actions/playback_start", callControlID)
	err := c.post(ctx, path, map[string]string{"audio_url": audioURL}, nil)
	if err != nil {
		return fmt.Errorf("playback_start %s: %w", callControlID, err)
	}
	c.log.Info("playback started", "call_control_id", callControlID)
	return nil
}

func (c *TelnyxClient) RecordStart(ctx context.Context, callControlID string, opts RecordOptions) error {
	opts = opts.withDefaults()
	path := fmt.Sprintf("/calls/%s/actions/record_start", callControlID)
	err := c.post(ctx, path, map[string]string{
		"format":   opts.Format,
		"channels": opts.Channels,
	}, nil)
	if err != nil {
		return fmt.Errorf("record_start %s: %w", callControlID, err)
	}
	c.log.Info("recording started", "call_control_id", callControlID)
	return nil
}

// post sends a JSON request and decodes the response into out (when non-nil).
// Non-2xx statuses surface as *APIError with the provider's error body.
func (c *TelnyxClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorMessage pulls the first error title out of the provider's error
// envelope, falling back to the raw body.
func errorMessage(raw []byte) string {
	var env struct {
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Errors) > 0 {
		if env.Errors[0].Detail != "" {
			return env.Errors[0].Title + ": " + env.Errors[0].Detail
		}
		return env.Errors[0].Title
	}
	return strings.TrimSpace(string(raw))
}
