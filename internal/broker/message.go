package broker

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// Message is a single published item. The broker owns the canonical record;
// everything handed out by broker operations is a snapshot produced by Clone.
type Message struct {
	// MessageID is the globally unique identifier assigned at publish.
	MessageID string `json:"message_id"`
	// Topic is the topic the message was published under, verbatim.
	Topic string `json:"topic"`
	// Data is the opaque payload. The broker never interprets it.
	Data json.RawMessage `json:"data"`
	// Timestamp is the publish time in unix seconds.
	Timestamp int64 `json:"timestamp"`
	// TTL is the time-to-live in seconds.
	TTL int64 `json:"ttl"`
	// ExpireTS is Timestamp + TTL, compared against wall clock on expiry.
	ExpireTS int64 `json:"expire_ts"`
	// ClientsAcknowledged holds the session ids that acknowledged this message.
	ClientsAcknowledged map[string]struct{} `json:"-"`
}

// newMessage builds a live record for publish. Identity is the fresh uuid.
func newMessage(topic string, data json.RawMessage, ttl, now int64) *Message {
	return &Message{
		MessageID:           generateMessageID(),
		Topic:               topic,
		Data:                data,
		Timestamp:           now,
		TTL:                 ttl,
		ExpireTS:            now + ttl,
		ClientsAcknowledged: make(map[string]struct{}),
	}
}

// generateMessageID returns a fresh opaque message identifier.
func generateMessageID() string {
	return uuid.New().String()
}

// IsExpired reports whether the message has aged past its expiry time.
func (m *Message) IsExpired(now int64) bool {
	return now > m.ExpireTS
}

// Clone returns a snapshot safe to read and serialize without the broker lock.
func (m *Message) Clone() *Message {
	acked := make(map[string]struct{}, len(m.ClientsAcknowledged))
	for id := range m.ClientsAcknowledged {
		acked[id] = struct{}{}
	}
	return &Message{
		MessageID:           m.MessageID,
		Topic:               m.Topic,
		Data:                m.Data,
		Timestamp:           m.Timestamp,
		TTL:                 m.TTL,
		ExpireTS:            m.ExpireTS,
		ClientsAcknowledged: acked,
	}
}

// AcknowledgedBy returns the acknowledging session ids in sorted order.
func (m *Message) AcknowledgedBy() []string {
	ids := make([]string, 0, len(m.ClientsAcknowledged))
	for id := range m.ClientsAcknowledged {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// sortNewestFirst orders messages by descending publish time. Timestamps are
// whole seconds and collide often, so ties fall back to the message id to
// keep results deterministic.
func sortNewestFirst(messages []*Message) {
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].Timestamp != messages[j].Timestamp {
			return messages[i].Timestamp > messages[j].Timestamp
		}
		return messages[i].MessageID < messages[j].MessageID
	})
}
