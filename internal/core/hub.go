package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/proto"
)

// ServerOwner labels rooms created at boot.
const ServerOwner = "Server"

// Options configures a hub. Zero limits mean unlimited.
type Options struct {
	MaxConnections       int
	DefaultRoom          string
	DefaultRoomCapacity  int
	RoomCapacity         int
	MaxPayloadLength     int
	MaxNameLength        int
	MessagesPerMinute    int
	AutoDeleteEmptyRooms bool
}

// Requests share one queue so each client's lines, joins and leaves are
// handled in the order they were submitted.
type request any

type registerRequest struct {
	client *Client
	reply  chan error
}

type unregisterRequest struct {
	client *Client
}

type inbound struct {
	client *Client
	line   proto.Line
}

// Hub is the single owner of the registry and the room directory.
// Every mutation happens on the goroutine running Run.
type Hub struct {
	opts     Options
	log      *zerolog.Logger
	registry *Registry
	rooms    *Directory
	limits   map[*Client]*rateLimiter
	now      func() time.Time

	requests chan request
	done     chan struct{}
}

// NewHub creates a hub and seeds the default room.
func NewHub(opts Options, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	rooms := NewDirectory()
	if opts.DefaultRoom != "" {
		rooms.CreateRoom(opts.DefaultRoom, ServerOwner, opts.DefaultRoomCapacity)
	}
	return &Hub{
		opts:     opts,
		log:      logger,
		registry: NewRegistry(opts.MaxConnections, rooms),
		rooms:    rooms,
		limits:   make(map[*Client]*rateLimiter),
		now:      time.Now,
		requests: make(chan request, 64),
		done:     make(chan struct{}),
	}
}

// Run processes requests until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case req := <-h.requests:
			h.handle(req)
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) handle(req request) {
	switch r := req.(type) {
	case registerRequest:
		r.reply <- h.handleRegister(r.client)
	case unregisterRequest:
		h.disconnect(r.client, "connection closed")
	case inbound:
		h.handleLine(r.client, r.line)
	}
}

// RegisterClient admits a client. It fails with ErrCapacityExceeded when the
// connection cap is reached and ErrHubStopped after shutdown.
func (h *Hub) RegisterClient(c *Client) error {
	reply := make(chan error, 1)
	select {
	case h.requests <- registerRequest{client: c, reply: reply}:
	case <-h.done:
		return ErrHubStopped
	}
	select {
	case err := <-reply:
		return err
	case <-h.done:
		return ErrHubStopped
	}
}

// UnregisterClient drops a client and notifies its room. Safe to call more than once.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.requests <- unregisterRequest{client: c}:
	case <-h.done:
	}
}

// Dispatch hands an inbound line to the hub.
func (h *Hub) Dispatch(c *Client, line proto.Line) {
	select {
	case h.requests <- inbound{client: c, line: line}:
	case <-h.done:
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Rooms returns a snapshot of every room in creation order.
func (h *Hub) Rooms() []RoomInfo {
	return h.rooms.ListRooms()
}

// ConnectionCount returns the number of registered clients.
func (h *Hub) ConnectionCount() int {
	return h.registry.Count()
}

// MaxConnections returns the configured connection cap.
func (h *Hub) MaxConnections() int {
	return h.registry.Max()
}

func (h *Hub) handleRegister(c *Client) error {
	if err := h.registry.Register(c); err != nil {
		h.log.Warn().Err(err).Str("client_id", c.ID).Str("remote", c.Remote).Msg("client rejected")
		return err
	}
	h.limits[c] = newRateLimiter(h.opts.MessagesPerMinute)
	h.log.Info().
		Str("client_id", c.ID).
		Str("remote", c.Remote).
		Int("clients", h.registry.Count()).
		Msg("client connected")
	h.reply(c, proto.OK("Connected to server"))
	return nil
}

// disconnect is the single cleanup path for stop, end-of-stream, I/O errors
// and overflowing outboxes.
func (h *Hub) disconnect(c *Client, reason string) {
	room, name, ok := h.registry.Unregister(c)
	delete(h.limits, c)
	c.close()
	if !ok {
		return
	}

	h.log.Info().
		Str("client_id", c.ID).
		Str("user", name).
		Str("room", room).
		Str("reason", reason).
		Int("clients", h.registry.Count()).
		Msg("client disconnected")

	if room == "" {
		return
	}
	if name != "" {
		h.notifyRoom(room, proto.System(name+" left the room"), nil)
	}
	h.dropIfEmpty(room)
}

// reply queues a frame for one client; a full queue disconnects it.
func (h *Hub) reply(c *Client, f proto.Frame) bool {
	if c.Send(f) {
		return true
	}
	if h.registry.Has(c) {
		h.disconnect(c, "outbox full")
	}
	return false
}

func (h *Hub) notifyRoom(room string, f proto.Frame, exclude *Client) int {
	sent, failed := h.rooms.Broadcast(room, f, exclude)
	for _, c := range failed {
		h.log.Warn().Str("client_id", c.ID).Str("room", room).Msg("dropping slow client")
		h.disconnect(c, "outbox full")
	}
	return sent
}

func (h *Hub) dropIfEmpty(room string) {
	if !h.opts.AutoDeleteEmptyRooms || room == h.opts.DefaultRoom {
		return
	}
	if h.rooms.RemoveRoom(room) {
		h.log.Info().Str("room", room).Msg("empty room removed")
	}
}

func (h *Hub) shutdown() {
	clients := h.registry.Clients()
	for _, c := range clients {
		h.registry.Unregister(c)
		c.close()
	}
	h.log.Info().Int("clients", len(clients)).Msg("hub stopped")
}
