package core

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/linechat/internal/proto"
)

func testOptions() Options {
	return Options{
		MaxConnections:      10,
		DefaultRoom:         "Main",
		DefaultRoomCapacity: 10,
		RoomCapacity:        5,
		MaxPayloadLength:    64,
		MaxNameLength:       16,
	}
}

func startHub(t *testing.T, opts Options) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(opts, nil)
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

// connect registers a client and consumes the greeting.
func connect(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()

	c := NewClient(id, "test:"+id, 16)
	if err := hub.RegisterClient(c); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	mustFrame(t, c, proto.ReplyOK)
	return c
}

// login connects a client and sets its username.
func login(t *testing.T, hub *Hub, name string) *Client {
	t.Helper()

	c := connect(t, hub, name)
	send(hub, c, "USERNAME:"+name)
	mustFrame(t, c, proto.ReplyOK)
	return c
}

func send(hub *Hub, c *Client, line string) {
	hub.Dispatch(c, proto.Line{Text: line})
}

// mustFrame skips frames until one with the wanted command arrives.
func mustFrame(t *testing.T, c *Client, command string) proto.Frame {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case f, ok := <-c.Outbox():
			if !ok {
				t.Fatalf("%s: outbox closed while waiting for %s", c.ID, command)
			}
			if f.Command == command {
				return f
			}
		case <-deadline:
			t.Fatalf("%s: expected frame %s not received", c.ID, command)
		}
	}
}

// mustNext returns the very next frame.
func mustNext(t *testing.T, c *Client) proto.Frame {
	t.Helper()

	select {
	case f, ok := <-c.Outbox():
		if !ok {
			t.Fatalf("%s: outbox closed", c.ID)
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("%s: no frame received", c.ID)
	}
	return proto.Frame{}
}

// expectClosed waits until the hub closes the client's outbox.
func expectClosed(t *testing.T, c *Client) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.Outbox():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("%s: outbox not closed", c.ID)
		}
	}
}

// expectSilent asserts no frame is queued after the hub processed a barrier request.
func expectSilent(t *testing.T, hub *Hub, c *Client) {
	t.Helper()

	barrier(t, hub)
	select {
	case f := <-c.Outbox():
		t.Fatalf("%s: unexpected frame %+v", c.ID, f)
	default:
	}
}

// barrier round-trips a request through the hub so earlier requests are done.
func barrier(t *testing.T, hub *Hub) {
	t.Helper()

	probe := NewClient("barrier", "", 1)
	if err := hub.RegisterClient(probe); err != nil {
		return
	}
	hub.UnregisterClient(probe)
	for range probe.Outbox() {
	}
}
