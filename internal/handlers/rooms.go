package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/signalhub/internal/middleware"
	"github.com/mossy-p/signalhub/internal/models"
	"github.com/mossy-p/signalhub/internal/signaling"
	"github.com/rs/zerolog/log"
)

// RoomsHandler serves the operator API. Every read goes through the hub so
// it sees the same state the dispatch loop does.
type RoomsHandler struct {
	hub *Hub
}

func NewRoomsHandler(hub *Hub) *RoomsHandler {
	return &RoomsHandler{hub: hub}
}

// ListRooms lists every non-empty room with its member count
func (h *RoomsHandler) ListRooms(c *gin.Context) {
	var rooms []models.RoomSummary
	if err := h.hub.Do(c.Request.Context(), func(s *signaling.Server) {
		rooms = s.Rooms.List()
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// GetRoom describes one room
func (h *RoomsHandler) GetRoom(c *gin.Context) {
	name := c.Param("name")

	var desc models.RoomDescriptor
	var count int
	if err := h.hub.Do(c.Request.Context(), func(s *signaling.Server) {
		count = s.Rooms.Count(name)
		desc = s.Rooms.Describe(name, s.Sessions)
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	c.JSON(http.StatusOK, desc)
}

// DeleteRoom evicts every member of a room
func (h *RoomsHandler) DeleteRoom(c *gin.Context) {
	name := c.Param("name")

	var evicted int
	if err := h.hub.Do(c.Request.Context(), func(s *signaling.Server) {
		evicted = s.EvictRoom(name)
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if evicted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	log.Info().Str("module", "admin").Str("room", name).Str("operator", c.GetString(middleware.ContextOperatorKey)).Int("evicted", evicted).Msg("room deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Room deleted", "evicted": evicted})
}
