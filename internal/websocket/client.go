package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Client represents one WebSocket connection and the GraphQL operations
// running over it.
type Client struct {
	ID       string          // Unique client ID
	Conn     *websocket.Conn // WebSocket connection
	Send     chan []byte     // Outbound message channel
	protocol protocol

	mu         sync.Mutex                    // Protects operations and acked
	operations map[string]context.CancelFunc // Running operations by client-chosen id
	acked      bool

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, p protocol) *Client {
	return &Client{
		ID:         uuid.New().String(),
		Conn:       conn,
		Send:       make(chan []byte, sendBuffer),
		protocol:   p,
		operations: make(map[string]context.CancelFunc),
		done:       make(chan struct{}),
	}
}

// Protocol returns the negotiated subprotocol name.
func (c *Client) Protocol() string {
	return c.protocol.name
}

// acknowledge marks the connection initialised and reports whether it
// already was.
func (c *Client) acknowledge() (already bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	already = c.acked
	c.acked = true
	return already
}

func (c *Client) isAcked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acked
}

// addOperation records a running operation. It returns false if the id is
// already in use.
func (c *Client) addOperation(id string, cancel context.CancelFunc) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.operations[id]; exists {
		return false
	}
	c.operations[id] = cancel
	return true
}

// removeOperation forgets id, cancelling it, and reports whether it was
// still running.
func (c *Client) removeOperation(id string) bool {
	c.mu.Lock()
	cancel, ok := c.operations[id]
	delete(c.operations, id)
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// OperationCount returns the number of running operations.
func (c *Client) OperationCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.operations)
}

// stopAll cancels every running operation.
func (c *Client) stopAll() {
	c.mu.Lock()
	ops := c.operations
	c.operations = make(map[string]context.CancelFunc)
	c.mu.Unlock()
	for _, cancel := range ops {
		cancel()
	}
}

// WriteLoop handles outbound messages from the Send channel
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.close()
			return
		case <-c.done:
			return
		case msg := <-c.Send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

// closeWith sends a close frame carrying code and reason, then closes.
func (c *Client) closeWith(code int, reason string) {
	_ = c.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	c.close()
}

// close closes the WebSocket connection
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.Conn.Close()
	})
}

// SendMessage queues a message for the client (non-blocking). It reports
// false when the message was dropped.
func (c *Client) SendMessage(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- msg:
		return true
	case <-c.done:
		return false
	default:
		// Channel full, message dropped
		return false
	}
}
