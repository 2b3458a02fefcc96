package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"clocksync.service/internal/api/handler"
)

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(h *handler.WebhookHandler) *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/webhooks/timesheet", h.Receive).Methods(http.MethodPost)
	api.HandleFunc("/webhooks/timesheet/preview", h.Preview).Methods(http.MethodPost)
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	api.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)

	return r
}
