package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dev.httpmq.broker/internal/broker"
)

// AdminHandler exposes broker internals for operators. Authentication is the
// middleware's job; these handlers assume the request already passed it.
type AdminHandler struct {
	broker *broker.Broker
	logger *logrus.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(b *broker.Broker, logger *logrus.Logger) *AdminHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &AdminHandler{
		broker: b,
		logger: logger,
	}
}

// ListTopics returns every topic currently holding messages
// GET /api/admin/topics
func (h *AdminHandler) ListTopics(c *gin.Context) {
	c.JSON(http.StatusOK, TopicsResponse{Topics: h.broker.Topics()})
}

// ListMessages returns a topic's messages with expiry and acknowledgement state
// GET /api/admin/messages/*topic
func (h *AdminHandler) ListMessages(c *gin.Context) {
	topic := topicParam(c)

	msgs := h.broker.Messages(topic)

	resp := AdminMessagesResponse{Messages: make([]AdminMessageResponse, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, newAdminMessageResponse(m))
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterAdminRoutes registers the admin routes on the given group. The
// caller attaches the auth middleware to the group.
func RegisterAdminRoutes(r *gin.RouterGroup, h *AdminHandler) {
	r.GET("/topics", h.ListTopics)
	r.GET("/messages/*topic", h.ListMessages)
}
