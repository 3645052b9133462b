// Package realtime fans committed change events out to WebSocket subscribers.
// Each subscriber watches one resource path prefix.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/pkg/docpath"
)

// Op names the kind of write behind a change event.
type Op string

const (
	OpCreated   Op = "created"
	OpUpdated   Op = "updated"
	OpDeleted   Op = "deleted"
	OpActivated Op = "activated"
	OpArchived  Op = "archived"
)

// ChangeEvent is broadcast after a write commits.
type ChangeEvent struct {
	Op   Op        `json:"op"`
	Kind string    `json:"kind"`
	Path string    `json:"path"`
	At   time.Time `json:"at"`
}

// Publisher accepts change events. Implementations must not block the caller.
type Publisher interface {
	Publish(event ChangeEvent)
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(ChangeEvent) {}

const (
	maxMessageSize = 512
	defaultBuffer  = 64
)

// Config tunes the hub.
type Config struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	// CheckOrigin vets the Origin of upgrade requests. Nil applies the
	// same-origin check of websocket.Upgrader.
	CheckOrigin func(r *http.Request) bool
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	prefix string
}

// Hub keeps the subscriber set and routes events by path prefix.
type Hub struct {
	cfg        Config
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	events     chan ChangeEvent
	register   chan *client
	unregister chan *client
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub builds a hub. Call Run before serving connections.
func NewHub(cfg Config, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Hub{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: cfg.CheckOrigin,
		},
		events:     make(chan ChangeEvent, cfg.SendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
	}
}

// Run dispatches events until ctx is cancelled, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("live subscriber connected", zap.String("prefix", c.prefix))
		case c := <-h.unregister:
			h.remove(c)
		case event := <-h.events:
			h.dispatch(event)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Debug("live subscriber disconnected", zap.String("prefix", c.prefix))
	}
}

func (h *Hub) dispatch(event ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal change event", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !docpath.HasPrefix(event.Path, c.prefix) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn("dropping slow live subscriber", zap.String("prefix", c.prefix))
		}
	}
}

// Publish queues an event. When the queue is full the event is dropped and logged.
func (h *Hub) Publish(event ChangeEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	select {
	case h.events <- event:
	default:
		h.logger.Warn("live event queue full", zap.String("path", event.Path), zap.String("op", string(event.Op)))
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and subscribes the connection to prefix.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, prefix string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, h.cfg.SendBuffer), prefix: prefix}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return nil
	}

	go c.writePump()
	go c.readPump()
	return nil
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	pongWait := c.hub.cfg.PingInterval * 2
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("live subscriber read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
