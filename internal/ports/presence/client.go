package presence

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"clocksync.service/internal/core/model"
)

// Client is the contract for flipping an extension's phone-presence state.
type Client interface {
	SetPresence(ctx context.Context, extensionID string, state model.Presence) error
}

// HTTPClient calls the phone-presence API over HTTP. The API sits in front
// of a third-party PBX that gets slow when it is unwell, so calls go through
// a circuit breaker instead of piling up.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	cb      *gobreaker.CircuitBreaker
}

// NewHTTPClient creates a presence client for the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	settings := gobreaker.Settings{
		Name:        "Phone-Presence-API",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if failure rate is over 50% after at least 10 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

// SetPresence flips the extension to the requested state.
func (c *HTTPClient) SetPresence(ctx context.Context, extensionID string, state model.Presence) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.post(ctx, extensionID, state)
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		log.Ctx(ctx).Warn().Str("extension_id", extensionID).Msg("Presence circuit breaker is open, skipping call")
	}
	return err
}

func (c *HTTPClient) post(ctx context.Context, extensionID string, state model.Presence) error {
	endpoint := fmt.Sprintf("%s/extensions/%s/%s", c.baseURL, url.PathEscape(extensionID), state)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create presence request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call presence api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("presence api returned non-successful status code: %d", resp.StatusCode)
	}

	return nil
}
