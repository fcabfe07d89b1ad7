package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dev.httpmq.broker/internal/broker"
)

// HealthHandler serves the deploy probe.
type HealthHandler struct {
	broker    *broker.Broker
	startedAt time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(b *broker.Broker) *HealthHandler {
	return &HealthHandler{
		broker:    b,
		startedAt: time.Now(),
	}
}

// HealthResponse reports process liveness and broker occupancy.
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Topics   int    `json:"topics"`
	Messages int    `json:"messages"`
}

// GetHealth returns liveness and current broker counts
// GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	stats := h.broker.Stats()

	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		Uptime:   time.Since(h.startedAt).Round(time.Second).String(),
		Sessions: stats.Sessions,
		Topics:   stats.Topics,
		Messages: stats.Messages,
	})
}

// RegisterHealthRoutes registers the health probe on the engine root.
func RegisterHealthRoutes(r *gin.Engine, h *HealthHandler) {
	r.GET("/health", h.GetHealth)
}
