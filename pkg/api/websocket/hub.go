package websocket

import (
	"encoding/json"
	"sync"

	"github.com/0xmhha/show-indexer/pkg/eventbus"
	"go.uber.org/zap"
)

const (
	// DefaultMaxClients is the maximum number of concurrent WebSocket clients
	DefaultMaxClients = 10000

	broadcastBuffer = 256
)

// Hub maintains the set of active clients and broadcasts events to them
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	unregister chan *Client
	broadcast  chan *Event

	// done signals the Run goroutine to exit
	done     chan struct{}
	stopOnce sync.Once

	maxClients int

	logger *zap.Logger
}

// NewHub creates a new Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event, broadcastBuffer),
		done:       make(chan struct{}),
		maxClients: DefaultMaxClients,
		logger:     logger,
	}
}

// Run runs the hub event loop until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.unregister:
			h.removeClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Register adds a client. It returns false when the hub is stopped or full.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		return false
	default:
	}
	if len(h.clients) >= h.maxClients {
		h.logger.Warn("max clients reached, rejecting connection",
			zap.Int("max_clients", h.maxClients))
		return false
	}
	h.clients[c] = true
	h.logger.Debug("client registered", zap.Int("total_clients", len(h.clients)))
	return true
}

// Unregister queues a client for removal
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client unregistered", zap.Int("total_clients", total))
}

// broadcastEvent sends an event to all subscribed clients
func (h *Hub) broadcastEvent(event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.Error(err))
		return
	}
	messageBytes, err := json.Marshal(Message{Type: "event", Payload: payload})
	if err != nil {
		h.logger.Error("failed to marshal message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for client := range h.clients {
		if !client.IsSubscribed(event.Type) {
			continue
		}
		select {
		case client.send <- messageBytes:
			sent++
		default:
			h.logger.Warn("client buffer full, closing connection")
			close(client.send)
			delete(h.clients, client)
		}
	}

	h.logger.Debug("event broadcasted",
		zap.String("type", string(event.Type)),
		zap.Int("recipients", sent))
}

// BroadcastShowUpserted queues a committed show write for subscribers
func (h *Hub) BroadcastShowUpserted(ev eventbus.ShowUpserted) {
	select {
	case h.broadcast <- &Event{Type: SubscribeShowUpserted, Data: ev}:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			zap.String("show_id", ev.ShowID.String()))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop ends Run and closes every client connection
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.logger.Info("hub stopped")
	})
}
