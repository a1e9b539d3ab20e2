package core

import (
	"sync"

	"github.com/vovakirdan/linechat/internal/proto"
)

// DefaultOutboxSize is used when a client is built with a non-positive queue size.
const DefaultOutboxSize = 64

// Client is a chat connection as seen by the core layer.
// Transports drain Outbox and close the socket once it is closed.
type Client struct {
	ID     string
	Remote string

	outbox chan proto.Frame

	mu     sync.Mutex
	closed bool
}

// NewClient constructs a client with an outbox holding up to size frames.
func NewClient(id, remote string, size int) *Client {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Client{
		ID:     id,
		Remote: remote,
		outbox: make(chan proto.Frame, size),
	}
}

// Outbox yields frames queued for delivery; it is closed when the hub drops the client.
func (c *Client) Outbox() <-chan proto.Frame {
	return c.outbox
}

// Send queues a frame without blocking. It returns false when the client is
// closed or its queue is full.
func (c *Client) Send(f proto.Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.outbox <- f:
		return true
	default:
		return false
	}
}

// Closed reports whether the outbox has been closed.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.outbox)
}
