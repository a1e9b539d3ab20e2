package core

import (
	"sync"

	"github.com/vovakirdan/linechat/internal/proto"
)

// RoomInfo is a read-only snapshot of a room.
type RoomInfo struct {
	Name     string `json:"name"`
	Owner    string `json:"owner"`
	Capacity int    `json:"capacity"`
	Members  int    `json:"members"`
}

// Directory owns the named rooms and the exclusive client→room membership.
type Directory struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	order    []string
	memberOf map[*Client]string
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		rooms:    make(map[string]*Room),
		memberOf: make(map[*Client]string),
	}
}

// CreateRoom adds a room. It returns false, without changes, when the name is taken.
func (d *Directory) CreateRoom(name, owner string, capacity int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.rooms[name]; exists {
		return false
	}
	d.rooms[name] = NewRoom(name, owner, capacity)
	d.order = append(d.order, name)
	return true
}

// RemoveRoom deletes an empty room. Rooms with members are kept.
func (d *Directory) RemoveRoom(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[name]
	if !ok || !room.Empty() {
		return false
	}
	delete(d.rooms, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// JoinRoom moves the client into the named room, leaving its previous room.
// A missing or full target leaves every membership unchanged.
func (d *Directory) JoinRoom(c *Client, name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	target, ok := d.rooms[name]
	if !ok {
		return false
	}
	if target.Has(c) {
		return true
	}
	if target.Full() {
		return false
	}

	if prev, ok := d.memberOf[c]; ok {
		if room, exists := d.rooms[prev]; exists {
			room.RemoveClient(c)
		}
	}
	target.AddClient(c)
	d.memberOf[c] = name
	return true
}

// LeaveCurrent removes the client from its room and returns that room's name.
func (d *Directory) LeaveCurrent(c *Client) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name, ok := d.memberOf[c]
	if !ok {
		return "", false
	}
	if room, exists := d.rooms[name]; exists {
		room.RemoveClient(c)
	}
	delete(d.memberOf, c)
	return name, true
}

// CurrentRoom returns the room the client is in.
func (d *Directory) CurrentRoom(c *Client) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.memberOf[c]
	return name, ok
}

// Room returns a snapshot of a single room.
func (d *Directory) Room(name string) (RoomInfo, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[name]
	if !ok {
		return RoomInfo{}, false
	}
	return infoOf(room), true
}

// ListRooms returns every room in creation order.
func (d *Directory) ListRooms() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]RoomInfo, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, infoOf(d.rooms[name]))
	}
	return out
}

// Members returns the clients currently in the room.
func (d *Directory) Members(name string) []*Client {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[name]
	if !ok {
		return nil
	}
	out := make([]*Client, 0, room.Len())
	for c := range room.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast fans f out to the room's members, skipping exclude.
func (d *Directory) Broadcast(name string, f proto.Frame, exclude *Client) (int, []*Client) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[name]
	if !ok {
		return 0, nil
	}
	return room.Broadcast(f, exclude)
}

// Len returns the number of rooms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

func infoOf(r *Room) RoomInfo {
	return RoomInfo{
		Name:     r.Name,
		Owner:    r.Owner,
		Capacity: r.Capacity,
		Members:  r.Len(),
	}
}
