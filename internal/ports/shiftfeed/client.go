package shiftfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ActiveShift is one currently-open timesheet as reported by the
// time-and-attendance system.
type ActiveShift struct {
	EmployeeID string `json:"employee_id"`
	OnBreak    bool   `json:"on_break"`
}

// Feed is the contract for the bulk query the board uses to rebuild its
// table after a restart.
type Feed interface {
	ActiveShifts(ctx context.Context) ([]ActiveShift, error)
}

// HTTPClient queries the time-and-attendance API for active timesheets.
type HTTPClient struct {
	client  *http.Client
	baseURL string

	// backoff is swappable for tests.
	backoff func(attempt int) time.Duration
}

// NewHTTPClient creates a shift feed client for the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
		backoff: calculateBackoff,
	}
}

// ActiveShifts fetches the currently-open timesheets.
func (c *HTTPClient) ActiveShifts(ctx context.Context) ([]ActiveShift, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/timesheets/active", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create shift feed request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call shift feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("shift feed returned non-successful status code: %d", resp.StatusCode)
	}

	var shifts []ActiveShift
	if err := json.NewDecoder(resp.Body).Decode(&shifts); err != nil {
		return nil, fmt.Errorf("failed to decode shift feed response: %w", err)
	}
	return shifts, nil
}

// ActiveShiftsRetry retries the bulk query with exponential backoff. Meant
// for startup, where the feed may not be reachable yet; the last error is
// returned once the attempts are spent.
func (c *HTTPClient) ActiveShiftsRetry(ctx context.Context, attempts int) ([]ActiveShift, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := c.backoff(i)
			log.Ctx(ctx).Warn().Err(lastErr).Dur("retry_in", delay).Msg("Shift feed query failed, retrying")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		shifts, err := c.ActiveShifts(ctx)
		if err == nil {
			return shifts, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// calculateBackoff determines how long to wait before retrying a failed
// query. It increases the delay exponentially with each retry.
func calculateBackoff(attempt int) time.Duration {
	backoff := time.Duration(math.Pow(2, float64(attempt))*5) * time.Second
	if backoff > time.Minute {
		return time.Minute
	}
	return backoff
}
