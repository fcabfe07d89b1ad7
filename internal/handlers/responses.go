package handlers

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"dev.httpmq.broker/internal/broker"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse acknowledges an operation with no payload of its own.
type StatusResponse struct {
	Status string `json:"status"`
}

// RegisterResponse carries the server-generated session id.
type RegisterResponse struct {
	SessionID string `json:"session_id"`
}

// PublishResponse confirms a publish with the stored message's identity.
type PublishResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Timestamp int64  `json:"timestamp"`
}

// TopicsResponse lists topic names.
type TopicsResponse struct {
	Topics []string `json:"topics"`
}

// MessageResponse is the public projection of a stored message. Expiry
// bookkeeping and the acknowledgement roster stay server-side.
type MessageResponse struct {
	MessageID string          `json:"message_id"`
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	TTL       int64           `json:"ttl"`
}

// MessagesResponse wraps a receive result.
type MessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// AdminMessageResponse extends the public projection with the fields the
// admin console needs.
type AdminMessageResponse struct {
	MessageID           string          `json:"message_id"`
	Topic               string          `json:"topic"`
	Data                json.RawMessage `json:"data"`
	Timestamp           int64           `json:"timestamp"`
	TTL                 int64           `json:"ttl"`
	ExpireTS            int64           `json:"expire_ts"`
	ClientsAcknowledged []string        `json:"clients_acknowledged"`
}

// AdminMessagesResponse wraps an admin message listing.
type AdminMessagesResponse struct {
	Messages []AdminMessageResponse `json:"messages"`
}

func newMessageResponse(m *broker.Message) MessageResponse {
	return MessageResponse{
		MessageID: m.MessageID,
		Topic:     m.Topic,
		Data:      m.Data,
		Timestamp: m.Timestamp,
		TTL:       m.TTL,
	}
}

func newAdminMessageResponse(m *broker.Message) AdminMessageResponse {
	return AdminMessageResponse{
		MessageID:           m.MessageID,
		Topic:               m.Topic,
		Data:                m.Data,
		Timestamp:           m.Timestamp,
		TTL:                 m.TTL,
		ExpireTS:            m.ExpireTS,
		ClientsAcknowledged: m.AcknowledgedBy(),
	}
}

// resolveSessionID picks the session id from the Session-Id header, the
// session_id body field (already bound by the caller, handed in as
// bodySessionID) or the session_id query parameter, in that order.
func resolveSessionID(c *gin.Context, bodySessionID string) string {
	if id := c.GetHeader("Session-Id"); id != "" {
		return id
	}
	if bodySessionID != "" {
		return bodySessionID
	}
	return c.Query("session_id")
}

// topicParam returns the topic captured by the *topic route wildcard. Gin
// includes the leading slash in the wildcard value; the topic name starts
// after it.
func topicParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("topic"), "/")
}

// parseTTL interprets the raw ttl field of a publish body. A missing field
// falls back to defaultTTL. Integers are taken as-is and digit-only strings
// are converted; anything else (floats, signed strings, null) falls back to
// defaultTTL as well. A negative result maps to neverExpireTTL.
func parseTTL(raw json.RawMessage, defaultTTL, neverExpireTTL int64) int64 {
	if len(raw) == 0 {
		return defaultTTL
	}

	ttl := defaultTTL
	var n *int64
	if err := json.Unmarshal(raw, &n); err == nil && n != nil {
		ttl = *n
	} else {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && isDigits(s) {
			parsed, perr := strconv.ParseInt(s, 10, 64)
			if perr == nil {
				ttl = parsed
			}
		}
	}

	if ttl < 0 {
		ttl = neverExpireTTL
	}
	return ttl
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
