package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dev.httpmq.broker/internal/broker"
	"dev.httpmq.broker/internal/config"
	"dev.httpmq.broker/internal/observability"
	"dev.httpmq.broker/internal/observability/metrics"
)

// MessageHandler handles publish, receive and acknowledge requests.
type MessageHandler struct {
	broker    *broker.Broker
	config    config.BrokerConfig
	collector *metrics.Collector
	tracer    *observability.BrokerTracer
	logger    *logrus.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(b *broker.Broker, cfg config.BrokerConfig, collector *metrics.Collector, logger *logrus.Logger) *MessageHandler {
	if collector == nil {
		collector = metrics.NewCollector(nil)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &MessageHandler{
		broker:    b,
		config:    cfg,
		collector: collector,
		tracer:    observability.GetTracer(),
		logger:    logger,
	}
}

// PublishRequest carries a publish payload. TTL stays raw because the wire
// accepts both integers and digit strings; parseTTL sorts it out.
type PublishRequest struct {
	TTL  json.RawMessage `json:"ttl"`
	Data json.RawMessage `json:"data"`
}

// AcknowledgeRequest names one message to acknowledge.
type AcknowledgeRequest struct {
	SessionID string `json:"session_id"`
	Topic     string `json:"topic"`
	MessageID string `json:"message_id"`
}

// Publish godoc
// @Summary Publish a message
// @Description Publish a message to the topic named by the path suffix
// @Tags messages
// @Accept json
// @Produce json
// @Param topic path string true "Topic name, slashes allowed"
// @Param request body PublishRequest true "Payload and optional ttl in seconds"
// @Success 200 {object} PublishResponse
// @Failure 400 {object} ErrorResponse "Malformed body"
// @Router /api/publish/{topic} [post]
func (h *MessageHandler) Publish(c *gin.Context) {
	topic := topicParam(c)

	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad request"})
		return
	}

	ttl := parseTTL(req.TTL, h.config.DefaultTTL, h.config.NeverExpireTTL)
	msg := h.broker.Publish(topic, req.Data, ttl)

	h.collector.MessagesPublished.Inc()
	h.tracer.RecordPublish(c.Request.Context(), topic)

	h.logger.WithFields(logrus.Fields{
		"topic":      topic,
		"message_id": msg.MessageID,
		"ttl":        ttl,
	}).Debug("Message published")

	c.JSON(http.StatusOK, PublishResponse{
		Status:    "success",
		MessageID: msg.MessageID,
		Timestamp: msg.Timestamp,
	})
}

// Receive godoc
// @Summary Receive pending messages
// @Description Return every unacknowledged message on the session's topics, newest first
// @Tags messages
// @Produce json
// @Param session_id query string false "Session id (alternative to Session-Id header)"
// @Success 200 {object} MessagesResponse
// @Failure 404 {object} ErrorResponse "Unknown session"
// @Router /api/receive [get]
func (h *MessageHandler) Receive(c *gin.Context) {
	// Sweep first so the poll observes a freshly reconciled state. A session
	// past its TTL 404s here rather than lingering until the timer fires.
	h.broker.Expire()

	sessionID := resolveSessionID(c, "")

	msgs, err := h.broker.Receive(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}

	h.collector.ReceivePolls.Inc()
	h.collector.MessagesDelivered.Add(float64(len(msgs)))
	h.tracer.RecordReceive(c.Request.Context(), len(msgs))

	resp := MessagesResponse{Messages: make([]MessageResponse, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, newMessageResponse(m))
	}

	c.JSON(http.StatusOK, resp)
}

// Acknowledge godoc
// @Summary Acknowledge a message
// @Description Mark a message as seen by the session so receive stops returning it
// @Tags messages
// @Accept json
// @Produce json
// @Param request body AcknowledgeRequest true "Session, topic and message id"
// @Success 200 {object} StatusResponse
// @Failure 400 {object} ErrorResponse "Missing field"
// @Failure 404 {object} ErrorResponse "Unknown session, topic or message"
// @Router /api/acknowledge [post]
func (h *MessageHandler) Acknowledge(c *gin.Context) {
	var req AcknowledgeRequest
	_ = c.ShouldBindJSON(&req)
	sessionID := resolveSessionID(c, req.SessionID)

	if sessionID == "" || req.Topic == "" || req.MessageID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad request"})
		return
	}

	if err := h.broker.Acknowledge(sessionID, req.Topic, req.MessageID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "message invalid or not found"})
		return
	}

	h.collector.MessagesAcknowledged.Inc()
	h.tracer.RecordAcknowledge(c.Request.Context(), req.Topic)

	h.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"topic":      req.Topic,
		"message_id": req.MessageID,
	}).Debug("Message acknowledged")

	c.JSON(http.StatusOK, StatusResponse{Status: "success"})
}

// RegisterMessageRoutes registers publish, receive and acknowledge routes.
func RegisterMessageRoutes(r *gin.RouterGroup, h *MessageHandler) {
	r.POST("/publish/*topic", h.Publish)
	r.GET("/receive", h.Receive)
	r.POST("/acknowledge", h.Acknowledge)
}
