package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512

	// DefaultMaxClients bounds concurrent stream subscribers.
	DefaultMaxClients = 1000
	// DefaultBufferSize is the per-client outbound queue length.
	DefaultBufferSize = 16
)

// StreamMessage is pushed to websocket clients.
type StreamMessage struct {
	Type        string               `json:"type"`
	Data        []domain.TokenRecord `json:"data"`
	LastUpdated *time.Time           `json:"lastUpdated"`
}

// HubConfig configures a Hub.
type HubConfig struct {
	MaxClients int
	BufferSize int

	// Current returns the snapshot sent to newly connected clients.
	Current func() *domain.Snapshot

	Logger *zap.Logger
}

type streamClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans featured-list updates out to websocket clients. It implements
// aggregator.Listener. A client whose queue is full is disconnected.
type Hub struct {
	cfg      HubConfig
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	closed  bool
}

// NewHub creates a Hub.
func NewHub(cfg HubConfig) *Hub {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		cfg:    cfg,
		logger: logger.Named("stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*streamClient]struct{}),
	}
}

// Len returns the number of connected clients. Nil-safe.
func (h *Hub) Len() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Len() >= h.cfg.MaxClients {
		writeError(w, http.StatusServiceUnavailable, "too many stream clients")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &streamClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.cfg.BufferSize),
	}

	if h.cfg.Current != nil {
		if msg, err := encodeFeatured(h.cfg.Current()); err == nil {
			c.send <- msg
		}
	}

	if !h.register(c) {
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) register(c *streamClient) bool {
	h.mu.Lock()
	if h.closed || len(h.clients) >= h.cfg.MaxClients {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	observability.SetWSClients(n)
	h.logger.Debug("client connected", zap.String("client", c.id), zap.Int("clients", n))
	return true
}

// unregister removes c and closes its queue. Safe to call more than once.
func (h *Hub) unregister(c *streamClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()

	observability.SetWSClients(n)
	h.logger.Debug("client disconnected", zap.String("client", c.id), zap.Int("clients", n))
}

// SnapshotPublished broadcasts the featured list of snap. It never blocks.
func (h *Hub) SnapshotPublished(snap *domain.Snapshot) {
	msg, err := encodeFeatured(snap)
	if err != nil {
		h.logger.Error("encode featured", zap.Error(err))
		return
	}
	h.Broadcast(msg)
}

// Broadcast queues msg for every client, dropping the clients that cannot
// keep up.
func (h *Hub) Broadcast(msg []byte) {
	var slow []*streamClient

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		observability.RecordWSDropped()
		h.logger.Warn("dropping slow client", zap.String("client", c.id))
		h.unregister(c)
	}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*streamClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func encodeFeatured(snap *domain.Snapshot) ([]byte, error) {
	if snap == nil {
		snap = domain.EmptySnapshot()
	}
	data := snap.FeaturedTokens
	if data == nil {
		data = []domain.TokenRecord{}
	}
	return json.Marshal(StreamMessage{
		Type:        "featured",
		Data:        data,
		LastUpdated: snap.LastUpdated,
	})
}

func (h *Hub) writePump(c *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister(c)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

// readPump discards inbound messages and keeps the read deadline moving on
// pongs. Any read error ends the client.
func (h *Hub) readPump(c *streamClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
