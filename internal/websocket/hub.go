package websocket

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Hub tracks live WebSocket clients so they can be counted and drained on
// shutdown.
type Hub struct {
	mu sync.RWMutex

	// clients maps client ID to client (for cleanup)
	clients map[string]*Client

	operations atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients: make(map[string]*Client),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Context is the parent of every connection context; it ends on Shutdown.
func (h *Hub) Context() context.Context {
	return h.ctx
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

// Unregister removes a client and stops its operations
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	delete(h.clients, client.ID)
	h.mu.Unlock()

	client.stopAll()
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetOperationCount returns the number of running operations across clients
func (h *Hub) GetOperationCount() int {
	return int(h.operations.Load())
}

func (h *Hub) operationStarted()  { h.operations.Add(1) }
func (h *Hub) operationFinished() { h.operations.Add(-1) }

// Shutdown cancels every connection and closes the sockets.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	// close frames go out before the connection contexts end
	for _, c := range clients {
		c.stopAll()
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
	h.cancel()
}
