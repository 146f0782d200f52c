// Package live carries occupancy change events from the backend to
// connected map clients over a websocket.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"parking-locator/internal/logger"
)

// EventSpotsChanged is sent whenever at least one spot changed occupancy.
const EventSpotsChanged = "spots_changed"

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// Event is one message on the live feed.
type Event struct {
	Type    string    `json:"type"`
	Changed []int64   `json:"changed"`
	Freed   []int64   `json:"freed,omitempty"`
	At      time.Time `json:"at"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to every connected websocket client.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	mutex      sync.RWMutex
	log        *logger.Logger
}

// NewHub creates a Hub. Run must be started before clients connect.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("websocket client connected", map[string]interface{}{"total": total})

		case c := <-h.unregister:
			h.mutex.Lock()
			h.drop(c)
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("websocket client disconnected", map[string]interface{}{"total": total})

		case message := <-h.broadcast:
			h.mutex.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					h.log.Warn("websocket client too slow, dropping", nil)
					h.drop(c)
				}
			}
			h.mutex.Unlock()

		case <-ctx.Done():
			h.mutex.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mutex.Unlock()
			return
		}
	}
}

// drop must be called with the mutex held.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Publish queues ev for every client. It never blocks: when the queue is
// full the event is dropped, clients refresh on the next one anyway.
func (h *Hub) Publish(ev Event) {
	if ev.Type == "" {
		ev.Type = EventSpotsChanged
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	message, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("failed to encode live event", err, nil)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.log.Warn("broadcast channel is full, dropping event", nil)
	}
}

// Handler upgrades the request and attaches the connection to the hub.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn("failed to upgrade to websocket", map[string]interface{}{"error": err.Error()})
			return
		}

		cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
		select {
		case h.register <- cl:
		case <-h.done:
			conn.Close()
			return
		}

		go h.writePump(cl)
		go h.readPump(cl)
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.log.Debug("websocket write failed", map[string]interface{}{"error": err.Error()})
			h.leave(c)
			// Drain until the hub closes send.
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
}

// readPump discards inbound messages and unregisters on disconnect.
func (h *Hub) readPump(c *client) {
	defer h.leave(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket error", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
