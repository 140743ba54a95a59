package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jgirmay/alif24/internal/common/metrics"
)

const (
	MessageNotification = "notification"
	MessagePing         = "ping"
	MessageHello        = "connected"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 16
)

// Message is the frame pushed to websocket clients.
type Message struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

type client struct {
	id     uuid.UUID
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan Message
}

type delivery struct {
	userID uuid.UUID
	msg    Message
}

// Hub tracks open websocket sessions per user. All membership changes happen
// on the run goroutine.
type Hub struct {
	clients    map[uuid.UUID]map[*client]struct{}
	register   chan *client
	unregister chan *client
	deliver    chan delivery
	done       chan struct{}
	stopOnce   sync.Once
	heartbeat  time.Duration

	mu    sync.RWMutex
	count map[uuid.UUID]int

	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewHub(m *metrics.Metrics, log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*client]struct{}),
		register:   make(chan *client, 16),
		unregister: make(chan *client, 16),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
		heartbeat:  pingInterval,
		count:      make(map[uuid.UUID]int),
		metrics:    m,
		log:        log,
	}
}

// Start runs the hub until ctx is cancelled or Stop is called.
func (h *Hub) Start(ctx context.Context) {
	go h.run(ctx)
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Connections reports how many sessions the user has open.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count[userID]
}

// SendToUser queues msg for the user's sessions. It reports false when the
// user has no session or the hub is saturated.
func (h *Hub) SendToUser(userID uuid.UUID, msg Message) bool {
	if h.Connections(userID) == 0 {
		return false
	}
	select {
	case h.deliver <- delivery{userID: userID, msg: msg}:
		return true
	case <-h.done:
		return false
	default:
		h.log.Warn("notification hub saturated, dropping push", zap.String("user_id", userID.String()))
		return false
	}
}

// Serve owns conn until the peer goes away or the hub stops.
func (h *Hub) Serve(conn *websocket.Conn, userID uuid.UUID) {
	c := &client{
		id:     uuid.New(),
		userID: userID,
		conn:   conn,
		send:   make(chan Message, sendBuffer),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)

	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			h.Stop()
			return
		case <-h.done:
			return

		case c := <-h.register:
			sessions, ok := h.clients[c.userID]
			if !ok {
				sessions = make(map[*client]struct{})
				h.clients[c.userID] = sessions
			}
			sessions[c] = struct{}{}
			h.setCount(c.userID, len(sessions))
			h.metrics.WebsocketOpened()
			h.log.Debug("websocket registered", zap.String("user_id", c.userID.String()), zap.String("client_id", c.id.String()))
			c.send <- Message{Type: MessageHello, Timestamp: time.Now()}

		case c := <-h.unregister:
			h.drop(c)

		case d := <-h.deliver:
			for c := range h.clients[d.userID] {
				select {
				case c.send <- d.msg:
				default:
					h.log.Warn("websocket send buffer full", zap.String("client_id", c.id.String()))
				}
			}

		case <-ticker.C:
			ping := Message{Type: MessagePing, Timestamp: time.Now()}
			for _, sessions := range h.clients {
				for c := range sessions {
					select {
					case c.send <- ping:
					default:
					}
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	sessions, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := sessions[c]; !ok {
		return
	}
	delete(sessions, c)
	close(c.send)
	if len(sessions) == 0 {
		delete(h.clients, c.userID)
	}
	h.setCount(c.userID, len(sessions))
	h.metrics.WebsocketClosed()
	h.log.Debug("websocket unregistered", zap.String("client_id", c.id.String()))
}

func (h *Hub) shutdown() {
	for _, sessions := range h.clients {
		for c := range sessions {
			h.drop(c)
		}
	}
}

func (h *Hub) setCount(userID uuid.UUID, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n == 0 {
		delete(h.count, userID)
		return
	}
	h.count[userID] = n
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if msg.Type == MessagePing {
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// readPump discards client frames; it exists to process pongs and detect
// dead peers through the read deadline.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
