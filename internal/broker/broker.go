// Package broker implements an in-memory, topic based message broker with
// at-least-once pull delivery.
//
// All broker state lives behind a single mutex. Consumers are named sessions
// that subscribe to topics and pull messages; nothing is pushed. Messages
// carry a per-message TTL and idle sessions age out after a session TTL.
// Expire is the only operation that drops state.
package broker

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSessionTTL is how long a session survives without activity, in
// seconds.
const DefaultSessionTTL int64 = 3600

// Config holds broker configuration.
type Config struct {
	// SessionTTL is the idle lifetime of a session in seconds.
	SessionTTL int64
	// Logger is the logger to use. Defaults to a no-op logger.
	Logger *zap.Logger
	// Now overrides the wall clock, in unix seconds. Tests use it to drive
	// expiry deterministically. Nil means time.Now.
	Now func() int64
}

// DefaultConfig returns the default broker configuration.
func DefaultConfig() *Config {
	return &Config{
		SessionTTL: DefaultSessionTTL,
		Logger:     zap.NewNop(),
	}
}

// Stats is a point-in-time count of broker state.
type Stats struct {
	Sessions int `json:"sessions"`
	Topics   int `json:"topics"`
	Messages int `json:"messages"`
}

// Broker is the in-memory message store. A single mutex guards both maps, so
// every operation observes and produces a consistent state.
type Broker struct {
	mu       sync.Mutex
	sessions map[string]*Session
	topics   map[string]map[string]*Message

	sessionTTL int64
	logger     *zap.Logger

	// now is the clock. Tests swap it to drive expiry deterministically.
	now func() int64
}

// New creates a broker. A nil config selects defaults.
func New(cfg *Config) *Broker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	now := cfg.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Broker{
		sessions:   make(map[string]*Session),
		topics:     make(map[string]map[string]*Message),
		sessionTTL: sessionTTL,
		logger:     logger,
		now:        now,
	}
}

// Register creates a new session with a server generated id and returns the
// id. The caller cannot pick its own.
func (b *Broker) Register() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	sessionID := uuid.New().String()
	b.sessions[sessionID] = newSession(sessionID, b.now())

	b.logger.Debug("session registered",
		zap.String("session_id", sessionID))
	return sessionID
}

// Publish stores a message under the topic and returns a snapshot of it. The
// topic is created on first publish. Publishing never touches any session's
// activity clock.
func (b *Broker) Publish(topic string, data json.RawMessage, ttl int64) *Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	msg := newMessage(topic, data, ttl, b.now())
	messages, ok := b.topics[topic]
	if !ok {
		messages = make(map[string]*Message)
		b.topics[topic] = messages
	}
	messages[msg.MessageID] = msg

	b.logger.Debug("message published",
		zap.String("topic", topic),
		zap.String("message_id", msg.MessageID),
		zap.Int64("ttl", ttl))
	return msg.Clone()
}

// Subscribe adds the topic to the session's subscriptions. The lookup alone
// refreshes the session, even when the subscription turns out to be a
// duplicate.
func (b *Broker) Subscribe(sessionID, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	session, ok := b.sessions[sessionID]
	if !ok {
		return SessionNotFoundError(sessionID)
	}
	session.Refresh(b.now())

	if !session.Subscribe(topic) {
		return AlreadySubscribedError(sessionID, topic)
	}

	b.logger.Debug("session subscribed",
		zap.String("session_id", sessionID),
		zap.String("topic", topic))
	return nil
}

// Unsubscribe removes the topic from the session's subscriptions. It does not
// refresh the session and it keeps the acknowledgement set intact, so a
// re-subscribe does not re-deliver old messages.
func (b *Broker) Unsubscribe(sessionID, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	session, ok := b.sessions[sessionID]
	if !ok {
		return SessionNotFoundError(sessionID)
	}
	if !session.Unsubscribe(topic) {
		return NotSubscribedError(sessionID, topic)
	}

	b.logger.Debug("session unsubscribed",
		zap.String("session_id", sessionID),
		zap.String("topic", topic))
	return nil
}

// Subscriptions returns the session's subscribed topics in sorted order.
// Listing is read-only and does not refresh the session.
func (b *Broker) Subscriptions(sessionID string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	session, ok := b.sessions[sessionID]
	if !ok {
		return nil, SessionNotFoundError(sessionID)
	}
	topics := session.Topics()
	sort.Strings(topics)
	return topics, nil
}

// Receive returns every unacknowledged message on the session's subscribed
// topics, newest first. Messages are snapshots; the live records stay in the
// store until each consumer acknowledges its own copy. The call refreshes the
// session.
func (b *Broker) Receive(sessionID string) ([]*Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	session, ok := b.sessions[sessionID]
	if !ok {
		return nil, SessionNotFoundError(sessionID)
	}
	session.Refresh(b.now())

	pending := make([]*Message, 0)
	for topic := range session.SubscribedTopics {
		messages, ok := b.topics[topic]
		if !ok {
			continue
		}
		for _, msg := range messages {
			if _, acked := msg.ClientsAcknowledged[sessionID]; acked {
				continue
			}
			pending = append(pending, msg.Clone())
		}
	}
	sortNewestFirst(pending)

	b.logger.Debug("messages received",
		zap.String("session_id", sessionID),
		zap.Int("count", len(pending)))
	return pending, nil
}

// Acknowledge marks the message as seen by the session on both sides: the
// message records the session id and the session records the message id. The
// session must be subscribed to the topic and the message must still exist.
// The lookup refreshes the session even when the acknowledgement fails.
func (b *Broker) Acknowledge(sessionID, topic, messageID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	session, ok := b.sessions[sessionID]
	if !ok {
		return SessionNotFoundError(sessionID)
	}
	session.Refresh(b.now())

	if !session.IsSubscribed(topic) {
		return NotSubscribedError(sessionID, topic)
	}
	messages, ok := b.topics[topic]
	if !ok {
		return MessageNotFoundError(topic, messageID)
	}
	msg, ok := messages[messageID]
	if !ok {
		return MessageNotFoundError(topic, messageID)
	}

	msg.ClientsAcknowledged[sessionID] = struct{}{}
	session.Acknowledge(topic, messageID)

	b.logger.Debug("message acknowledged",
		zap.String("session_id", sessionID),
		zap.String("topic", topic),
		zap.String("message_id", messageID))
	return nil
}

// Topics returns all topic names in sorted order.
func (b *Broker) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	topics := make([]string, 0, len(b.topics))
	for topic := range b.topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// Messages returns snapshots of every message on the topic, newest first. An
// unknown topic yields an empty slice and is not created as a side effect.
func (b *Broker) Messages(topic string) []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := b.topics[topic]
	messages := make([]*Message, 0, len(stored))
	for _, msg := range stored {
		messages = append(messages, msg.Clone())
	}
	sortNewestFirst(messages)
	return messages
}

// Stats returns current session, topic and message counts.
func (b *Broker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := Stats{
		Sessions: len(b.sessions),
		Topics:   len(b.topics),
	}
	for _, messages := range b.topics {
		stats.Messages += len(messages)
	}
	return stats
}

// Expire drops every session idle past the session TTL and every message past
// its expiry time, then compacts the swept message ids out of the surviving
// sessions' acknowledgement sets. Both comparisons are strict, so state
// expiring exactly now survives until the next sweep. Topics left empty are
// removed. Returns the number of swept sessions and messages.
func (b *Broker) Expire() (sessionsSwept, messagesSwept int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()

	for sessionID, session := range b.sessions {
		if session.IsExpired(now, b.sessionTTL) {
			delete(b.sessions, sessionID)
			sessionsSwept++
		}
	}

	sweptIDs := make(map[string]struct{})
	for topic, messages := range b.topics {
		for messageID, msg := range messages {
			if msg.IsExpired(now) {
				delete(messages, messageID)
				sweptIDs[messageID] = struct{}{}
			}
		}
		if len(messages) == 0 {
			delete(b.topics, topic)
		}
	}
	messagesSwept = len(sweptIDs)

	if messagesSwept > 0 {
		for _, session := range b.sessions {
			for messageID := range sweptIDs {
				delete(session.AcknowledgedMessages, messageID)
			}
		}
	}

	if sessionsSwept > 0 || messagesSwept > 0 {
		b.logger.Debug("expiry sweep",
			zap.Int("sessions_swept", sessionsSwept),
			zap.Int("messages_swept", messagesSwept))
	}
	return sessionsSwept, messagesSwept
}
