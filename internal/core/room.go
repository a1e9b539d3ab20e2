package core

import "github.com/vovakirdan/linechat/internal/proto"

// Room groups clients subscribed to the same channel.
type Room struct {
	Name     string
	Owner    string
	Capacity int
	clients  map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(name, owner string, capacity int) *Room {
	return &Room{
		Name:     name,
		Owner:    owner,
		Capacity: capacity,
		clients:  make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns false if the client is
// already present or the room is full.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	if r.Full() {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Has reports membership.
func (r *Room) Has(c *Client) bool {
	_, ok := r.clients[c]
	return ok
}

// Broadcast queues the frame for every member except exclude.
// Recipients whose queue rejected the frame are returned; delivery to the
// others continues regardless.
func (r *Room) Broadcast(f proto.Frame, exclude *Client) (int, []*Client) {
	sent := 0
	var failed []*Client
	for client := range r.clients {
		if client == exclude {
			continue
		}
		if client.Send(f) {
			sent++
			continue
		}
		failed = append(failed, client)
	}
	return sent, failed
}

// Len returns the member count.
func (r *Room) Len() int {
	return len(r.clients)
}

// Full reports whether another member would exceed capacity.
func (r *Room) Full() bool {
	return r.Capacity > 0 && len(r.clients) >= r.Capacity
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
