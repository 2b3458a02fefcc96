package board

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"clocksync.service/internal/core/model"
)

type snapshotMessage struct {
	Type      string                 `json:"type"`
	Employees []model.EmployeeStatus `json:"employees"`
	Timestamp time.Time              `json:"timestamp"`
}

type updateMessage struct {
	Type        string            `json:"type"`
	EmployeeID  string            `json:"employee_id"`
	Name        string            `json:"name"`
	ClockStatus model.ClockStatus `json:"clock_status"`
	Timestamp   time.Time         `json:"timestamp"`
}

type pongMessage struct {
	Type string `json:"type"`
}

// Hub owns the in-memory status table and the set of live WebSocket
// subscribers. One mutex guards both, which keeps the ordering guarantee
// simple: a subscriber's snapshot is enqueued under the same lock that
// broadcasts run under, so no update can slip between snapshot and stream.
type Hub struct {
	mu       sync.RWMutex
	statuses map[string]*model.EmployeeStatus
	clients  map[*Client]bool

	now func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		statuses: make(map[string]*model.EmployeeStatus),
		clients:  make(map[*Client]bool),
		now:      time.Now,
	}
}

// InitializeEmployee seeds one row without broadcasting. Rows that already
// exist are left alone, so a live update that raced ahead of startup
// recovery wins.
func (h *Hub) InitializeEmployee(status model.EmployeeStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.statuses[status.EmployeeID]; ok {
		return
	}
	row := status
	h.statuses[status.EmployeeID] = &row
}

// UpdateStatus upserts a row, stamps it, and broadcasts the change to every
// subscriber. The name and extension already on the row survive an update
// that omits them. Returns the number of subscribers the update was offered
// to.
func (h *Hub) UpdateStatus(update model.StatusUpdate) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	row, ok := h.statuses[update.EmployeeID]
	if !ok {
		row = &model.EmployeeStatus{EmployeeID: update.EmployeeID}
		h.statuses[update.EmployeeID] = row
	}
	if update.Name != "" {
		row.Name = update.Name
	}
	row.ClockStatus = update.ClockStatus
	row.LastUpdated = h.now()

	h.broadcastLocked(updateMessage{
		Type:        "status_update",
		EmployeeID:  row.EmployeeID,
		Name:        row.Name,
		ClockStatus: row.ClockStatus,
		Timestamp:   row.LastUpdated,
	})
	return len(h.clients)
}

// Statuses returns the table sorted by employee id.
func (h *Hub) Statuses() []model.EmployeeStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotLocked()
}

// Status returns one row.
func (h *Hub) Status(employeeID string) (model.EmployeeStatus, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	row, ok := h.statuses[employeeID]
	if !ok {
		return model.EmployeeStatus{}, false
	}
	return *row, true
}

// Subscribe registers a client and queues the full table as its first
// message. The client's send buffer is empty at this point, so the enqueue
// cannot fail.
func (h *Hub) Subscribe(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	c.enqueue(snapshotMessage{
		Type:      "all_statuses",
		Employees: h.snapshotLocked(),
		Timestamp: h.now(),
	})
	h.mu.Unlock()

	log.Info().Str("client_id", c.id).Int("total_clients", total).Msg("Status client connected")
}

// Unsubscribe removes a client and closes its send channel. Safe to call
// more than once for the same client.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		log.Info().Str("client_id", c.id).Int("total_clients", total).Msg("Status client disconnected")
	}
}

// Close drops every subscriber; used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	if len(clients) > 0 {
		log.Info().Int("count", len(clients)).Msg("Closed status client connections")
	}
}

func (h *Hub) snapshotLocked() []model.EmployeeStatus {
	rows := make([]model.EmployeeStatus, 0, len(h.statuses))
	for _, row := range h.statuses {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].EmployeeID < rows[j].EmployeeID })
	return rows
}

// broadcastLocked offers msg to every subscriber without blocking. A client
// whose buffer is full is ejected in the background rather than stalling
// everyone else.
func (h *Hub) broadcastLocked(msg any) {
	for c := range h.clients {
		if !c.enqueue(msg) {
			log.Warn().Str("client_id", c.id).Msg("Status client too slow, dropping")
			go h.Unsubscribe(c)
		}
	}
}
