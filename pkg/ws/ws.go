// Package ws pushes order updates to connected customers over WebSockets
// using gorilla/websocket. Connections are grouped by user so an event for
// one customer's order reaches every tab that customer has open and no one
// else.
//
//	hub := ws.NewHub()
//	go hub.Run(ctx)
//	ws.Upgrade(w, r, hub, principal.ID)
//	hub.SendToUser(order.UserID, payload)
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fitforge/fitforge/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // clients only send pings and small acks
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SetCheckOrigin replaces the default allow-all origin checker.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}

// Event is the JSON frame pushed to clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ─── Client ───────────────────────────────────────────────────────────────────

// Client is one connected socket.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uint
	send   chan []byte
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ─── Hub ──────────────────────────────────────────────────────────────────────

type userMessage struct {
	userID uint
	data   []byte
}

// Hub tracks connections per user.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	toUser     chan userMessage
	broadcast  chan []byte
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		toUser:     make(chan userMessage, 256),
		broadcast:  make(chan []byte, 256),
	}
}

// Run is the hub event loop. It returns when ctx is done, closing every
// client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for uid, set := range h.clients {
				for c := range set {
					close(c.send)
				}
				delete(h.clients, uid)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[c.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.userID] = set
			}
			set[c] = struct{}{}
			h.mu.Unlock()
			logger.Debug("ws: client connected", "user_id", c.userID)

		case c := <-h.unregister:
			h.remove(c)

		case m := <-h.toUser:
			h.mu.RLock()
			targets := make([]*Client, 0, len(h.clients[m.userID]))
			for c := range h.clients[m.userID] {
				targets = append(targets, c)
			}
			h.mu.RUnlock()
			h.deliver(targets, m.data)

		case data := <-h.broadcast:
			h.mu.RLock()
			var targets []*Client
			for _, set := range h.clients {
				for c := range set {
					targets = append(targets, c)
				}
			}
			h.mu.RUnlock()
			h.deliver(targets, data)
		}
	}
}

// deliver drops clients whose buffers are full so one slow reader cannot
// stall the hub.
func (h *Hub) deliver(targets []*Client, data []byte) {
	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	logger.Debug("ws: client disconnected", "user_id", c.userID)
}

// SendToUser queues data for every connection of userID. It never blocks;
// when the hub is saturated the message is dropped.
func (h *Hub) SendToUser(userID uint, data []byte) {
	select {
	case h.toUser <- userMessage{userID: userID, data: data}:
	default:
		logger.Warn("ws: hub queue full, dropping message", "user_id", userID)
	}
}

// Broadcast queues data for every connection.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		logger.Warn("ws: hub queue full, dropping broadcast")
	}
}

// Publish encodes an Event and sends it to userID.
func (h *Hub) Publish(userID uint, eventType string, data any) {
	b, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		logger.Error("ws: encode event", "type", eventType, "error", err)
		return
	}
	h.SendToUser(userID, b)
}

// ClientCount returns the number of connected sockets.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Upgrade upgrades the request and registers the socket under userID.
func Upgrade(w http.ResponseWriter, r *http.Request, hub *Hub, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithCtx(r.Context()).Warn("ws: upgrade failed", "error", err)
		return
	}
	c := &Client{hub: hub, conn: conn, userID: userID, send: make(chan []byte, sendBuffer)}
	hub.register <- c
	go c.writePump()
	go c.readPump()
}
