// Package ws implements the WebSocket fan-out hub. The hub exclusively owns
// the set of connected clients; registration, subscription changes, broadcast
// iteration, and heartbeat reaping are all serialized through it.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256

	// reapInterval is the cadence of the heartbeat reaper.
	reapInterval = 30 * time.Second

	// pingTimeout drops clients that have not sent an application-level ping
	// within this window.
	pingTimeout = 5 * time.Minute
)

// ValidChannels is the fixed set of subscription channels.
var ValidChannels = []string{
	"bridge_health",
	"risk_alerts",
	"top_products",
	"tranche_apy",
	"bridge_transactions",
	"pricing_updates",
}

func validChannel(ch string) bool {
	for _, v := range ValidChannels {
		if ch == v {
			return true
		}
	}
	return false
}

// upgrader configures the WebSocket upgrade parameters. Origin checks happen
// in the CORS middleware before the upgrade.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is the hub-side state of one connection.
type client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time

	mu       sync.RWMutex
	subs     map[string]bool
	lastPing time.Time
}

// inboundMsg is the JSON envelope clients send to manage their subscription.
type inboundMsg struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

// Hub manages all connected WebSocket clients and fans monitored-signal
// messages out to channel subscribers.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		logger:  logger.With(slog.String("component", "ws_hub")),
	}
}

// Run drives the heartbeat reaper until the context is cancelled, then closes
// every remaining client with a close frame.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case <-ticker.C:
			h.reapStale()
		}
	}
}

// reapStale drops every client whose last ping is older than pingTimeout.
func (h *Hub) reapStale() {
	cutoff := time.Now().Add(-pingTimeout)

	h.mu.Lock()
	var stale []*client
	for c := range h.clients {
		c.mu.RLock()
		last := c.lastPing
		c.mu.RUnlock()
		if last.Before(cutoff) {
			stale = append(stale, c)
			delete(h.clients, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stale {
		close(c.send)
	}
	if len(stale) > 0 {
		h.logger.Info("reaped stale websocket clients", slog.Int("count", len(stale)))
	}
}

// closeAll disconnects every client (graceful shutdown).
func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
}

// drop removes a single client; safe to call twice for the same client.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if ok {
		close(c.send)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast serializes message once and enqueues it to every client
// subscribed to channel. A client whose send buffer is full is dropped rather
// than back-pressuring the producer; within one client the producer's call
// order is preserved.
func (h *Hub) Broadcast(channel string, message map[string]any) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("broadcast marshal failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	h.mu.RLock()
	var full []*client
	for c := range h.clients {
		if !c.isSubscribed(channel) {
			continue
		}
		select {
		case c.send <- data:
		default:
			full = append(full, c)
		}
	}
	h.mu.RUnlock()

	// Dropping a slow or dead client is routine, not an error.
	for _, c := range full {
		h.drop(c)
	}
}

// HandleWS upgrades the HTTP request, sends the welcome envelope, registers
// the client, and starts its pumps.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	now := time.Now().UTC()
	c := &client{
		id:          uuid.New().String(),
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: now,
		subs:        make(map[string]bool),
		lastPing:    now,
	}

	// The welcome envelope goes onto the send queue before the client is
	// visible to Broadcast, so it always precedes any channel message.
	welcome, _ := json.Marshal(map[string]any{
		"type":               "welcome",
		"client_id":          c.id,
		"available_channels": ValidChannels,
		"timestamp":          now.Format(time.RFC3339),
	})
	c.send <- welcome

	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		slog.String("client_id", c.id),
		slog.Int("total_clients", total),
	)

	go c.writePump()
	go c.readPump(h)
}

// isSubscribed reports whether the client subscribed to channel.
func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[channel]
}

// enqueue pushes a control response onto the client's ordered send queue.
func (c *client) enqueue(v map[string]any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump consumes subscription-management frames until the connection
// closes, then unregisters the client.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.drop(c)
		c.conn.Close()
		h.logger.Info("websocket client disconnected",
			slog.String("client_id", c.id),
			slog.Int("total_clients", h.ClientCount()),
		)
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket unexpected close",
					slog.String("client_id", c.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var msg inboundMsg
		if err := json.Unmarshal(message, &msg); err != nil {
			c.enqueue(map[string]any{
				"type":    "error",
				"message": "Invalid subscription message format",
			})
			continue
		}
		c.handleAction(msg)
	}
}

// handleAction applies one subscribe/unsubscribe/ping request.
func (c *client) handleAction(msg inboundMsg) {
	now := time.Now().UTC()
	ts := now.Format(time.RFC3339)

	switch msg.Action {
	case "subscribe":
		if !validChannel(msg.Channel) {
			c.enqueue(map[string]any{
				"type":           "error",
				"message":        "Unknown channel: " + msg.Channel,
				"valid_channels": ValidChannels,
				"timestamp":      ts,
			})
			return
		}
		c.mu.Lock()
		c.subs[msg.Channel] = true
		c.mu.Unlock()
		c.enqueue(map[string]any{
			"type":      "subscribed",
			"channel":   msg.Channel,
			"timestamp": ts,
		})

	case "unsubscribe":
		c.mu.Lock()
		delete(c.subs, msg.Channel)
		c.mu.Unlock()
		c.enqueue(map[string]any{
			"type":      "unsubscribed",
			"channel":   msg.Channel,
			"timestamp": ts,
		})

	case "ping":
		c.mu.Lock()
		c.lastPing = now
		c.mu.Unlock()
		c.enqueue(map[string]any{
			"type":      "pong",
			"timestamp": ts,
		})

	default:
		c.enqueue(map[string]any{
			"type":    "error",
			"message": "Unknown action",
		})
	}
}

// writePump drains the send queue onto the connection. It exits when the hub
// closes the queue (reap, shutdown, drop) or a write fails.
func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	// Queue closed: say goodbye properly.
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
}
