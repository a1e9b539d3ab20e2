package http

import "github.com/vovakirdan/linechat/internal/core"

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	Name     string `json:"name"`
	Owner    string `json:"owner"`
	Capacity int    `json:"capacity"`
	Members  int    `json:"members"`
	Full     bool   `json:"full"`
}

// RoomsResponse wraps the room listing.
type RoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

// StatsResponse summarises the hub.
type StatsResponse struct {
	Connections    int `json:"connections"`
	MaxConnections int `json:"max_connections"`
	Rooms          int `json:"rooms"`
}

func roomFromCore(info core.RoomInfo) RoomResponse {
	return RoomResponse{
		Name:     info.Name,
		Owner:    info.Owner,
		Capacity: info.Capacity,
		Members:  info.Members,
		Full:     info.Capacity > 0 && info.Members >= info.Capacity,
	}
}

func roomsFromCore(infos []core.RoomInfo) []RoomResponse {
	out := make([]RoomResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, roomFromCore(info))
	}
	return out
}
