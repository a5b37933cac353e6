package event

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// SurfaceEvent is a message received from a rendering surface: selections,
// pointer movement, clicks, resizes, scroll reports and speech synthesizer
// feedback, expressed in the surface's document coordinates and node paths.
type SurfaceEvent struct {
	Kind       string  `json:"kind"` // "selection", "pointermove", "pointerup", "click", "resize", "scroll", "boundary", "end"
	StartPath  []int   `json:"startPath,omitempty"`
	StartOff   int     `json:"startOffset,omitempty"`
	EndPath    []int   `json:"endPath,omitempty"`
	EndOff     int     `json:"endOffset,omitempty"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Columns    int     `json:"columns,omitempty"`
	CharIndex  int     `json:"charIndex,omitempty"`
	CharLength int     `json:"charLength,omitempty"`
}

// Hub fans bus messages out to connected surfaces and feeds surface events
// back to the engine.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	onEvent  func(SurfaceEvent)

	mu      sync.Mutex
	clients map[*client]bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub builds a hub. onEvent is invoked for every message a surface sends;
// it may be nil for broadcast-only use.
func NewHub(log *slog.Logger, onEvent func(SurfaceEvent)) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		onEvent: onEvent,
		clients: make(map[*client]bool),
	}
}

// Attach subscribes the hub to every topic on the bus.
func (h *Hub) Attach(bus *Bus) func() {
	return bus.SubscribeAll(func(msg Message) {
		h.Broadcast(msg)
	})
}

// Broadcast sends a message to every connected surface, dropping it for
// clients whose send buffer is full.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal event", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// ServeHTTP upgrades the connection and pumps messages both ways until the
// surface disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("surface connected", "clients", n)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer h.drop(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if h.onEvent == nil {
			continue
		}
		var ev SurfaceEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			h.log.Warn("bad surface event", "error", err)
			continue
		}
		h.onEvent(ev)
	}
}

func (h *Hub) writePump(c *client) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
	h.log.Info("surface disconnected")
}
