package statusboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"clocksync.service/internal/core/model"
)

// InternalSecretHeader authenticates service-to-service status pushes.
const InternalSecretHeader = "X-Internal-Secret"

// Notifier is the contract for pushing a status change to the live board.
type Notifier interface {
	// PushStatus delivers one update and returns the board's current
	// subscriber count.
	PushStatus(ctx context.Context, update model.StatusUpdate) (int, error)
}

// HTTPClient pushes updates to the status board's internal endpoint.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	secret  string
}

// NewHTTPClient creates a board client for the given base URL and shared secret.
func NewHTTPClient(baseURL, secret string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
		secret:  secret,
	}
}

func (c *HTTPClient) PushStatus(ctx context.Context, update model.StatusUpdate) (int, error) {
	payload, err := json.Marshal(update)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal status update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/internal/status", bytes.NewBuffer(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create board request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(InternalSecretHeader, c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call status board: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("status board returned non-successful status code: %d", resp.StatusCode)
	}

	var body struct {
		Subscribers int `json:"subscribers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode board response: %w", err)
	}
	return body.Subscribers, nil
}
