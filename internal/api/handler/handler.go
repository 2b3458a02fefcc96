package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"clocksync.service/internal/core/model"
	"clocksync.service/internal/dedupe"
	"clocksync.service/internal/timesheet"
)

const (
	statusIgnored   = "ignored"
	statusAccepted  = "accepted"
	statusDuplicate = "duplicate"
)

// Enqueuer hands an admitted event to the side-effect pipeline.
type Enqueuer interface {
	Enqueue(ctx context.Context, event model.TimesheetEvent) error
}

// WebhookHandler is the ingress for timesheet webhooks: parse, admit, queue,
// answer. Dedupe and ignore outcomes travel in the response body, never in
// the HTTP status code, so the sender's status-driven retry logic stays quiet.
type WebhookHandler struct {
	Parser *timesheet.Parser
	Locker dedupe.Locker
	Queue  Enqueuer
	Redis  *redis.Client

	// FailOpen controls what happens when the dedupe store is unreachable:
	// true processes the event with a warning, false rejects with a 503.
	FailOpen bool
}

type webhookResponse struct {
	Status     string       `json:"status"`
	Action     model.Action `json:"action"`
	Reason     string       `json:"reason,omitempty"`
	DedupeKey  string       `json:"dedupe_key,omitempty"`
	EmployeeID *int         `json:"employee_id,omitempty"`
	Warning    string       `json:"warning,omitempty"`
}

// Receive handles one webhook delivery.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var payload any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}

	ctx := r.Context()
	logger := log.Ctx(ctx)
	ev := h.Parser.Parse(payload)

	if ev.Action == model.ActionIgnore {
		logger.Info().Str("reason", ev.Reason).Msg("Webhook ignored")
		writeJSON(w, http.StatusOK, webhookResponse{Status: statusIgnored, Action: ev.Action, Reason: ev.Reason})
		return
	}

	resp := webhookResponse{
		Status:     statusAccepted,
		Action:     ev.Action,
		Reason:     ev.Reason,
		DedupeKey:  ev.DedupeKey,
		EmployeeID: ev.EmployeeID,
	}

	if ev.DedupeKey == "" {
		// Still processed, but the sender should know replays won't be caught.
		resp.Warning = "no dedupe key generated; processing without replay protection"
		logger.Warn().Str("action", string(ev.Action)).Msg("Event has no dedupe key, processing unverified")
	} else {
		won, err := h.Locker.Admit(ctx, ev.DedupeKey)
		switch {
		case err != nil && !h.FailOpen:
			logger.Error().Err(err).Msg("Dedupe store unreachable, rejecting webhook")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Dedupe store unavailable"})
			return
		case err != nil:
			logger.Warn().Err(err).Msg("Dedupe store unreachable, processing without replay protection")
			resp.Warning = "dedupe store unreachable; processed without replay protection"
		case !won:
			logger.Info().Str("dedupe_key", ev.DedupeKey).Msg("Duplicate webhook suppressed")
			resp.Status = statusDuplicate
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	if err := h.Queue.Enqueue(ctx, ev); err != nil {
		logger.Error().Err(err).Msg("Failed to queue event for processing")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Service error processing event"})
		return
	}

	logger.Info().
		Str("action", string(ev.Action)).
		Str("dedupe_key", ev.DedupeKey).
		Msg("Webhook accepted")
	writeJSON(w, http.StatusOK, resp)
}

// Preview classifies a payload without locking or side effects. Handy for
// checking what a given webhook body would do before pointing the sender at
// the real endpoint.
func (h *WebhookHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var payload any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}

	writeJSON(w, http.StatusOK, h.Parser.Parse(payload))
}

// Health is the liveness probe.
func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Service is operational."))
}

// Ready is the readiness probe; it fails while the dedupe store is
// unreachable.
func (h *WebhookHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.Redis.Ping(r.Context()).Err(); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
