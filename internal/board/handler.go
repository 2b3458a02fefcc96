package board

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"clocksync.service/internal/core/model"
	"clocksync.service/internal/ports/statusboard"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Dashboards connect from arbitrary origins; the bearer token is
		// the auth boundary, not the Origin header.
		return true
	},
}

// StatusHandler exposes the hub over HTTP: the WebSocket stream, the REST
// reads, and the internal mutation endpoints.
type StatusHandler struct {
	Hub    *Hub
	Tokens *TokenSet

	// InternalSecret guards the mutation endpoints. An empty secret
	// disables them outright rather than leaving them open.
	InternalSecret string
}

// ServeWS authenticates and upgrades a status stream subscription. The token
// check runs before the upgrade so a bad token gets a clean 401 instead of a
// dropped socket.
func (h *StatusHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if !h.Tokens.Valid(requestToken(r)) {
		logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("Status stream rejected, bad token")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or missing token"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := newClient(h.Hub, conn, r.RemoteAddr)
	h.Hub.Subscribe(client)

	go client.writePump()
	go client.readPump()
}

// GetAll returns the full status table.
func (h *StatusHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	if !h.Tokens.Valid(requestToken(r)) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or missing token"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"employees": h.Hub.Statuses()})
}

// GetOne returns a single employee's row.
func (h *StatusHandler) GetOne(w http.ResponseWriter, r *http.Request) {
	if !h.Tokens.Valid(requestToken(r)) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or missing token"})
		return
	}

	employeeID := mux.Vars(r)["employeeID"]
	status, ok := h.Hub.Status(employeeID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown employee id"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// InternalUpdate is the service-to-service push that feeds the board.
func (h *StatusHandler) InternalUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if !h.authorizedInternal(r) {
		logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("Internal status push rejected, bad secret")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid internal secret"})
		return
	}

	var update model.StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}
	if update.EmployeeID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "employee_id is required"})
		return
	}
	if _, ok := model.ParseClockStatus(string(update.ClockStatus)); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown clock_status"})
		return
	}

	subscribers := h.Hub.UpdateStatus(update)
	logger.Info().
		Str("employee_id", update.EmployeeID).
		Str("clock_status", string(update.ClockStatus)).
		Int("subscribers", subscribers).
		Msg("Status updated")
	writeJSON(w, http.StatusOK, map[string]int{"subscribers": subscribers})
}

// MintToken issues a new bearer token for the read endpoints.
func (h *StatusHandler) MintToken(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if !h.authorizedInternal(r) {
		logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("Token mint rejected, bad secret")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid internal secret"})
		return
	}

	token, err := h.Tokens.Mint()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to mint token")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to mint token"})
		return
	}

	logger.Info().Msg("Issued status API token")
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Health is the liveness probe.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Service is operational."))
}

func (h *StatusHandler) authorizedInternal(r *http.Request) bool {
	return h.InternalSecret != "" && r.Header.Get(statusboard.InternalSecretHeader) == h.InternalSecret
}

// requestToken pulls the bearer token from the Authorization header, falling
// back to the token query parameter for browser WebSocket clients that
// cannot set headers.
func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
