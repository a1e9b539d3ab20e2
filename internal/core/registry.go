package core

import (
	"strings"
	"sync"
)

// AnonymousName replaces blank usernames.
const AnonymousName = "Anonymous"

type identity struct {
	name  string
	color string
}

// Registry tracks live clients, their display names and colour tags.
// Unregister also drops the client's room membership in the directory.
type Registry struct {
	mu         sync.RWMutex
	max        int
	clients    map[*Client]*identity
	dir        *Directory
	nextColour int
}

// NewRegistry builds a registry capped at max concurrent clients (0 = no cap).
func NewRegistry(max int, dir *Directory) *Registry {
	if dir == nil {
		dir = NewDirectory()
	}
	return &Registry{
		max:     max,
		clients: make(map[*Client]*identity),
		dir:     dir,
	}
}

// Register admits a client and assigns its colour.
func (r *Registry) Register(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c]; exists {
		return ErrAlreadyRegistered
	}
	if r.max > 0 && len(r.clients) >= r.max {
		return ErrCapacityExceeded
	}
	r.clients[c] = &identity{color: Palette[r.nextColour%len(Palette)]}
	r.nextColour++
	return nil
}

// SetIdentity binds a display name, replacing any previous one, and returns
// the stored name. Blank names become AnonymousName.
func (r *Registry) SetIdentity(c *Client, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = AnonymousName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.clients[c]
	if !ok {
		return "", false
	}
	id.name = name
	return name, true
}

// IdentityOf returns the client's name; false means not yet registered.
func (r *Registry) IdentityOf(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.clients[c]
	if !ok || id.name == "" {
		return "", false
	}
	return id.name, true
}

// ColorOf returns the client's colour tag.
func (r *Registry) ColorOf(c *Client) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.clients[c]; ok {
		return id.color
	}
	return DefaultColor
}

// Has reports whether the client is registered.
func (r *Registry) Has(c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[c]
	return ok
}

// Count returns the number of live clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Clients returns a snapshot of the live clients.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Max returns the configured connection cap.
func (r *Registry) Max() int {
	return r.max
}

// Unregister forgets the client and removes it from its room.
// It returns the former room and name so callers can notify the room.
func (r *Registry) Unregister(c *Client) (room, name string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, exists := r.clients[c]
	if !exists {
		return "", "", false
	}
	delete(r.clients, c)
	room, _ = r.dir.LeaveCurrent(c)
	return room, id.name, true
}
