package alerts

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/silentcry/silentcry/internal/metrics"
)

// Hub maintains the set of connected feed clients and broadcasts alerts to them.
type Hub struct {
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Broadcast channel for encoded alerts
	broadcast chan []byte

	// Closed when Run returns
	done chan struct{}

	logger  *slog.Logger
	metrics metrics.Recorder
	mu      sync.RWMutex
}

// NewHub creates a new Hub instance.
func NewHub(logger *slog.Logger, recorder metrics.Recorder) *Hub {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
		logger:     logger.With("component", "alerts.hub"),
		metrics:    recorder,
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.metrics.SetFeedClients(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetFeedClients(int64(n))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetFeedClients(int64(n))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.metrics.IncAlertDelivered()
				default:
					// Client's buffer is full, drop it
					close(client.send)
					delete(h.clients, client)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetFeedClients(int64(n))
		}
	}
}

// Pump subscribes to bus and broadcasts every alert until ctx is done or
// the subscription ends.
func (h *Hub) Pump(ctx context.Context, bus Bus) error {
	alerts, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	for a := range alerts {
		if err := h.Broadcast(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Broadcast sends a to all connected clients.
func (h *Hub) Broadcast(ctx context.Context, a Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(ctx context.Context, c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// TotalClients returns the total number of connected clients.
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
