package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/readsync-server/internal/core"
)

// APIHandlers provides the plain HTTP endpoints next to the WebSocket.
type APIHandlers struct {
	registry *core.Registry
	log      *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(registry *core.Registry, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		registry: registry,
		log:      logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health reports liveness.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Stats returns current room and membership counts.
// GET /api/stats
func (h *APIHandlers) Stats(c *gin.Context) {
	stats := h.registry.Stats()
	h.log.Debug().Int("rooms", stats.Rooms).Int("members", stats.Members).Msg("stats requested")
	c.JSON(http.StatusOK, stats)
}

// NotFound is the fallback for unknown routes.
func (h *APIHandlers) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
}
