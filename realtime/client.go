package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Client is one authenticated connection. Frames queued after the
// connection closed are dropped.
type Client struct {
	id        string
	userID    string
	sessionID string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(userID, sessionID string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 64
	}
	return &Client{
		id:        uuid.NewString(),
		userID:    userID,
		sessionID: sessionID,
		send:      make(chan []byte, buffer),
	}
}

func (c *Client) ID() string        { return c.id }
func (c *Client) UserID() string    { return c.userID }
func (c *Client) SessionID() string { return c.sessionID }

// Outbound is drained by the connection's write pump.
func (c *Client) Outbound() <-chan []byte { return c.send }

// enqueue never blocks: a client whose buffer is full loses the frame.
func (c *Client) enqueue(msg []byte) bool {
	if msg == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
