package board

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Clients only ever send
	// small ping frames.
	maxMessageSize = 512

	sendBuffer = 256
)

// Client is one WebSocket subscriber to the status stream.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan any
	id        string
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan any, sendBuffer),
		id:   fmt.Sprintf("%s_%d", remoteAddr, time.Now().UnixNano()),
	}
}

// enqueue offers a message without blocking; false means the buffer is full.
func (c *Client) enqueue(msg any) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close shuts the send channel exactly once, which tells writePump to send a
// close frame and drop the connection.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump consumes frames from the peer until the connection dies. The only
// application message clients send is {"type":"ping"}, answered with a pong
// so dashboards can measure liveness above the protocol layer.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				log.Warn().Err(err).Str("client_id", c.id).Msg("Status client read error")
			}
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Str("client_id", c.id).Msg("Discarding malformed client message")
			continue
		}
		if msg.Type == "ping" {
			c.enqueue(pongMessage{Type: "pong"})
		}
	}
}

// writePump serializes all writes to the connection: queued messages plus
// protocol pings on a ticker.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("Status client write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
