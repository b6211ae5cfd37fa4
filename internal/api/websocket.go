package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/aha-recorder/internal/device"
)

// Message types.
const (
	WSTypeSnapshot = "snapshot"
	WSTypePing     = "ping"
	WSTypePong     = "pong"
	WSTypeError    = "error"
)

const (
	wsSendBuffer     = 16
	wsPingInterval   = 30 * time.Second
	wsWriteWait      = 10 * time.Second
	wsReadWait       = wsPingInterval + wsWriteWait
	wsMaxMessageSize = 4096
)

// WSMessage is the envelope of every frame in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

func snapshotMessage(tick time.Time, snap *device.Snapshot) WSMessage {
	return WSMessage{
		Type:      WSTypeSnapshot,
		Timestamp: tick.UTC().Format(time.RFC3339),
		Payload:   newSnapshotPayload(tick, snap),
	}
}

// The listener defaults to loopback, so cross-origin dashboards are allowed.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// offer queues data without blocking and reports whether it fit.
// Callers hold the hub's read lock.
func (c *wsClient) offer(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// handleWebSocket upgrades the request and primes the client with the
// latest snapshot. Registration happens under the server's read lock so
// a concurrent Publish cannot slip an older snapshot in after a newer one.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "request_id", requestIDFrom(r.Context()))
		return
	}

	c := &wsClient{hub: s.hub, conn: conn, send: make(chan []byte, wsSendBuffer)}

	s.mu.RLock()
	s.hub.add(c)
	if s.latest != nil {
		if data, err := json.Marshal(snapshotMessage(s.latest.tick, s.latest.snap)); err == nil {
			s.hub.deliver(c, data)
		}
	}
	s.mu.RUnlock()

	go c.writeLoop()
	go c.readLoop()
}

func (c *wsClient) extendRead() error {
	return c.conn.SetReadDeadline(time.Now().Add(wsReadWait))
}

// readLoop answers client frames until the connection fails.
func (c *wsClient) readLoop() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetPongHandler(func(string) error { return c.extendRead() })
	//nolint:errcheck // a failed deadline surfaces as a read error
	c.extendRead()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		//nolint:errcheck // a failed deadline surfaces as a read error
		c.extendRead()
		c.reply(data)
	}
}

// writeLoop drains the send channel and keeps the connection alive with
// pings. It exits when the hub closes the channel or a write fails.
func (c *wsClient) writeLoop() {
	ping := time.NewTicker(wsPingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		var (
			kind = websocket.TextMessage
			data []byte
		)
		select {
		case msg, open := <-c.send:
			if !open {
				//nolint:errcheck // connection is going away anyway
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			data = msg
		case <-ping.C:
			kind = websocket.PingMessage
		}

		//nolint:errcheck // a failed deadline surfaces as a write error
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

// reply handles one client frame. The only request clients may send is
// an application-level ping.
func (c *wsClient) reply(data []byte) {
	var in WSMessage
	out := WSMessage{Timestamp: time.Now().UTC().Format(time.RFC3339)}

	switch err := json.Unmarshal(data, &in); {
	case err != nil:
		out.Type, out.Payload = WSTypeError, map[string]string{"message": "invalid JSON message"}
	case in.Type == WSTypePing:
		out.Type, out.ID = WSTypePong, in.ID
	default:
		out.Type, out.ID = WSTypeError, in.ID
		out.Payload = map[string]string{"message": "unknown message type: " + in.Type}
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return
	}
	c.hub.deliver(c, encoded)
}
