package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// APIHandlers serves read-only views of the hub state.
type APIHandlers struct {
	hub Hub
	log *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub Hub, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub: hub,
		log: logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListRooms returns every room in creation order.
// GET /api/rooms
func (h *APIHandlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, RoomsResponse{Rooms: roomsFromCore(h.hub.Rooms())})
}

// GetRoom returns a single room by name.
// GET /api/rooms/:name
func (h *APIHandlers) GetRoom(c *gin.Context) {
	name := c.Param("name")
	for _, info := range h.hub.Rooms() {
		if info.Name == name {
			c.JSON(http.StatusOK, roomFromCore(info))
			return
		}
	}
	h.log.Debug().Str("room", name).Msg("room not found")
	c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
}

// Stats reports connection and room counts.
// GET /api/stats
func (h *APIHandlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Connections:    h.hub.ConnectionCount(),
		MaxConnections: h.hub.MaxConnections(),
		Rooms:          len(h.hub.Rooms()),
	})
}
