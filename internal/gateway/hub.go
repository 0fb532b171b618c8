// Package gateway fans completed backtest runs out to WebSocket
// clients. Clients connect to /ws and receive a JSON envelope per
// completed run; there is no per-client subscription state.
package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The service fronts local dashboards; origin checks are left to a
	// reverse proxy when one is deployed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope is the wire format for broadcast messages.
type Envelope struct {
	Type string          `json:"type"` // "run_complete"
	TS   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// Hub manages connected WebSocket clients and broadcasts run results.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	// onCount, when set, observes the client count after every
	// connect/disconnect (wired to the ws_clients gauge).
	onCount func(n int)
}

// NewHub creates an empty hub. onCount may be nil.
func NewHub(onCount func(n int)) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		onCount: onCount,
	}
}

// HandleWS upgrades the HTTP request and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade failed: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.notifyCount(count)

	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.writePump()
	go client.readPump()
}

// Broadcast sends one envelope to every connected client. Clients with
// a full send buffer are skipped; a slow consumer never blocks the run
// pipeline.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("[gateway] broadcast marshal error: %v", err)
		return
	}
	envelope, err := json.Marshal(Envelope{
		Type: msgType,
		TS:   time.Now().UTC(),
		Data: payload,
	})
	if err != nil {
		log.Printf("[gateway] broadcast envelope error: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- envelope:
		default:
			// client buffer full, drop
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RemoveClient unregisters a client and closes its send channel.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	h.notifyCount(count)
}

func (h *Hub) notifyCount(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}
