package channel

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

// ErrMalformedResponse is returned when the channel gateway accepts a message
// but its reply cannot be understood.
var ErrMalformedResponse = errors.New("malformed channel response")

// Client talks to the external channel-messaging gateway.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client. A zero timeout falls back to 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SendRequest is one outbound message. Reference is sent as the
// Idempotency-Key header so a retried attempt is deduplicated by the gateway.
type SendRequest struct {
	To        string `json:"to"`
	Body      string `json:"body"`
	Sender    string `json:"sender,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Reference string `json:"reference"`
	Token     string `json:"-"`
}

type SendResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// StatusError is a non-2xx reply from the channel gateway.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("channel returned %d", e.StatusCode)
	}
	return fmt.Sprintf("channel returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt: 5xx,
// request timeout and rate limiting.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests
}

// Send POSTs a message to {baseURL}/messages.
//   - 2xx with a message id → success
//   - non-2xx → *StatusError
//   - network error → wrapped transport error
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create send request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Reference != "" {
		httpReq.Header.Set("Idempotency-Key", req.Reference)
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("channel POST: %w", err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read channel response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var out SendResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.MessageID == "" {
		return nil, fmt.Errorf("%w: missing messageId", ErrMalformedResponse)
	}
	return &out, nil
}
