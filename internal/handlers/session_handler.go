package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dev.httpmq.broker/internal/broker"
	"dev.httpmq.broker/internal/observability/metrics"
)

// SessionHandler handles session registration and subscription requests.
type SessionHandler struct {
	broker    *broker.Broker
	collector *metrics.Collector
	logger    *logrus.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(b *broker.Broker, collector *metrics.Collector, logger *logrus.Logger) *SessionHandler {
	if collector == nil {
		collector = metrics.NewCollector(nil)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SessionHandler{
		broker:    b,
		collector: collector,
		logger:    logger,
	}
}

// SubscribeRequest identifies the session when no Session-Id header is sent.
type SubscribeRequest struct {
	SessionID string `json:"session_id"`
}

// Register godoc
// @Summary Register a new session
// @Description Create a session and return its server-generated id
// @Tags sessions
// @Produce json
// @Success 200 {object} RegisterResponse
// @Router /api/register [post]
func (h *SessionHandler) Register(c *gin.Context) {
	sessionID := h.broker.Register()
	h.collector.SessionsRegistered.Inc()

	h.logger.WithField("session_id", sessionID).Debug("Session registered")

	c.JSON(http.StatusOK, RegisterResponse{SessionID: sessionID})
}

// ListSubscriptions godoc
// @Summary List the session's subscriptions
// @Description Return the topics the session is currently subscribed to
// @Tags sessions
// @Produce json
// @Param session_id query string false "Session id (alternative to Session-Id header)"
// @Success 200 {object} TopicsResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/subscribe [get]
func (h *SessionHandler) ListSubscriptions(c *gin.Context) {
	sessionID := resolveSessionID(c, "")

	topics, err := h.broker.Subscriptions(sessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session_id not found"})
		return
	}

	c.JSON(http.StatusOK, TopicsResponse{Topics: topics})
}

// Subscribe godoc
// @Summary Subscribe to a topic
// @Description Subscribe the session to the topic named by the path suffix
// @Tags sessions
// @Accept json
// @Produce json
// @Param topic path string true "Topic name, slashes allowed"
// @Param request body SubscribeRequest false "Session id (alternative to Session-Id header)"
// @Success 200 {object} StatusResponse
// @Failure 400 {object} ErrorResponse "Unknown session"
// @Failure 404 {object} ErrorResponse "Already subscribed"
// @Router /api/subscribe/{topic} [post]
func (h *SessionHandler) Subscribe(c *gin.Context) {
	topic := topicParam(c)

	// The body is optional when the header or query carries the id.
	var req SubscribeRequest
	_ = c.ShouldBindJSON(&req)
	sessionID := resolveSessionID(c, req.SessionID)

	if err := h.broker.Subscribe(sessionID, topic); err != nil {
		if errors.Is(err, broker.ErrAlreadySubscribed) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "topic not found"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session_id not found"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"topic":      topic,
	}).Debug("Session subscribed")

	c.JSON(http.StatusOK, StatusResponse{Status: "subscribed"})
}

// Unsubscribe godoc
// @Summary Unsubscribe from a topic
// @Description Remove the session's subscription to the topic named by the path suffix
// @Tags sessions
// @Accept json
// @Produce json
// @Param topic path string true "Topic name, slashes allowed"
// @Param request body SubscribeRequest false "Session id (alternative to Session-Id header)"
// @Success 200 {object} StatusResponse
// @Failure 404 {object} ErrorResponse "Unknown session or not subscribed"
// @Router /api/subscribe/{topic} [delete]
func (h *SessionHandler) Unsubscribe(c *gin.Context) {
	topic := topicParam(c)

	var req SubscribeRequest
	_ = c.ShouldBindJSON(&req)
	sessionID := resolveSessionID(c, req.SessionID)

	if err := h.broker.Unsubscribe(sessionID, topic); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "topic or subscription not found"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"topic":      topic,
	}).Debug("Session unsubscribed")

	c.JSON(http.StatusOK, StatusResponse{Status: "success"})
}

// RegisterSessionRoutes registers session and subscription routes.
func RegisterSessionRoutes(r *gin.RouterGroup, h *SessionHandler) {
	r.POST("/register", h.Register)
	r.GET("/subscribe", h.ListSubscriptions)
	r.POST("/subscribe/*topic", h.Subscribe)
	r.DELETE("/subscribe/*topic", h.Unsubscribe)
}
