package api

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
)

// Hub tracks connected WebSocket clients and fans messages out to them.
//
// A client's send channel is only closed under the write lock, and sends
// only happen under the read lock after a membership check, so no send
// can race a close.
type Hub struct {
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx is cancelled and then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "clients", n)
}

// remove drops c and closes its send channel. Calling it for a client the
// hub no longer knows is a no-op.
func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// deliver queues data for c unless c is gone or its buffer is full.
func (h *Hub) deliver(c *wsClient, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c]; ok {
		c.offer(data)
	}
}

// Broadcast encodes msg once and queues it for every client. Clients whose
// buffer is full miss it.
func (h *Hub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode websocket message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for c := range h.clients {
		if !c.offer(data) {
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("slow websocket clients skipped", "type", msg.Type, "dropped", dropped)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
