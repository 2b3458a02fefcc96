package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clocksync.service/internal/core/model"
	"clocksync.service/internal/dedupe"
	"clocksync.service/internal/timesheet"
)

const clockInBody = `{
	"topic": "timesheet.insert",
	"data": [{"Id": 100, "Employee": 5, "IsInProgress": true,
	          "StartTime": 1700000000, "Date": "2023-11-14"}]
}`

type fakeQueue struct {
	mu     sync.Mutex
	events []model.TimesheetEvent
	err    error
}

func (q *fakeQueue) Enqueue(_ context.Context, ev model.TimesheetEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.events = append(q.events, ev)
	return nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func newTestHandler(t *testing.T) (*WebhookHandler, *miniredis.Miniredis, *fakeQueue) {
	t.Helper()

	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })

	queue := &fakeQueue{}
	h := &WebhookHandler{
		Parser:   timesheet.NewParser(0),
		Locker:   dedupe.NewRedisLocker(rdb, 0, 0),
		Queue:    queue,
		Redis:    rdb,
		FailOpen: true,
	}
	return h, srv, queue
}

func postWebhook(h *WebhookHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/timesheet", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Receive(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) webhookResponse {
	t.Helper()
	var resp webhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestReceiveRejectsMalformedBody(t *testing.T) {
	h, _, queue := newTestHandler(t)

	rec := postWebhook(h, `{"data": [`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, queue.count())
}

func TestReceiveIgnoresUnrecognizedPayload(t *testing.T) {
	h, srv, queue := newTestHandler(t)

	rec := postWebhook(h, `{"hello": "world"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, statusIgnored, resp.Status)
	assert.Equal(t, "No timesheet object found", resp.Reason)
	assert.Zero(t, queue.count())
	assert.Empty(t, srv.Keys())
}

func TestReceiveAcceptsClockIn(t *testing.T) {
	h, srv, queue := newTestHandler(t)

	rec := postWebhook(h, clockInBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, statusAccepted, resp.Status)
	assert.Equal(t, model.ActionClockIn, resp.Action)
	assert.Equal(t, "tci_c09011f0", resp.DedupeKey)
	require.NotNil(t, resp.EmployeeID)
	assert.Equal(t, 5, *resp.EmployeeID)
	assert.Empty(t, resp.Warning)

	require.Equal(t, 1, queue.count())
	assert.Equal(t, model.ActionClockIn, queue.events[0].Action)
	assert.True(t, srv.Exists("dedupe:tci_c09011f0"))
}

func TestReceiveSuppressesDuplicate(t *testing.T) {
	h, _, queue := newTestHandler(t)

	first := decodeResponse(t, postWebhook(h, clockInBody))
	second := decodeResponse(t, postWebhook(h, clockInBody))

	assert.Equal(t, statusAccepted, first.Status)
	assert.Equal(t, statusDuplicate, second.Status)
	assert.Equal(t, first.DedupeKey, second.DedupeKey)
	assert.Equal(t, 1, queue.count())
}

func TestReceiveProcessesKeylessEventWithWarning(t *testing.T) {
	h, srv, queue := newTestHandler(t)

	rec := postWebhook(h, `{"Employee": 5, "IsInProgress": false, "EndTime": 1700003600}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, statusAccepted, resp.Status)
	assert.Empty(t, resp.DedupeKey)
	assert.NotEmpty(t, resp.Warning)
	assert.Equal(t, 1, queue.count())
	assert.Empty(t, srv.Keys())
}

func TestReceiveFailsOpenWhenStoreDown(t *testing.T) {
	h, srv, queue := newTestHandler(t)
	srv.Close()

	rec := postWebhook(h, clockInBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, statusAccepted, resp.Status)
	assert.NotEmpty(t, resp.Warning)
	assert.Equal(t, 1, queue.count())
}

func TestReceiveFailsClosedWhenConfigured(t *testing.T) {
	h, srv, queue := newTestHandler(t)
	h.FailOpen = false
	srv.Close()

	rec := postWebhook(h, clockInBody)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, queue.count())
}

func TestReceiveReportsQueueFailure(t *testing.T) {
	h, _, queue := newTestHandler(t)
	queue.err = errors.New("queue shut down")

	rec := postWebhook(h, clockInBody)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPreviewClassifiesWithoutSideEffects(t *testing.T) {
	h, srv, queue := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/timesheet/preview", strings.NewReader(clockInBody))
	rec := httptest.NewRecorder()
	h.Preview(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var ev model.TimesheetEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, model.ActionClockIn, ev.Action)
	assert.Equal(t, "tci_c09011f0", ev.DedupeKey)

	assert.Zero(t, queue.count())
	assert.Empty(t, srv.Keys())
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Service is operational.", rec.Body.String())
}

func TestReadyReflectsStoreHealth(t *testing.T) {
	h, srv, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.Close()
	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
