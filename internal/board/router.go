package board

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter sets up the gorilla/mux router and defines all status board routes.
func NewRouter(h *StatusHandler) *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/status/ws", h.ServeWS).Methods(http.MethodGet)
	api.HandleFunc("/status", h.GetAll).Methods(http.MethodGet)
	api.HandleFunc("/status/{employeeID}", h.GetOne).Methods(http.MethodGet)
	api.HandleFunc("/internal/status", h.InternalUpdate).Methods(http.MethodPost)
	api.HandleFunc("/internal/tokens", h.MintToken).Methods(http.MethodPost)
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	return r
}
