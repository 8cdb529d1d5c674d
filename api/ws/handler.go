package ws

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Snapshotter provides the state sent to newly connected clients.
type Snapshotter interface {
	Snapshot() model.State
}

// Handler upgrades connections and registers them on the hub.
type Handler struct {
	hub   *Hub
	state Snapshotter
	log   logger.Logger
}

func NewHandler(hub *Hub, state Snapshotter, log logger.Logger) *Handler {
	return &Handler{hub: hub, state: state, log: logger.OrNop(log)}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("websocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 64),
	}

	if h.state != nil {
		if msg, err := NewEnvelope(TypeState, h.state.Snapshot()); err == nil {
			client.send <- msg
		}
	}
	h.hub.Register(client)
	go client.writePump()

	h.readPump(client)
}

// readPump discards client messages and detects disconnects.
func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warnf("websocket read error: %v", err)
			}
			return
		}
	}
}
