package broker

// Session is the per-client delivery state: which topics the client follows,
// which messages it has already seen, and when it was last heard from.
type Session struct {
	// SessionID is the opaque unique identifier for this client.
	SessionID string
	// SubscribedTopics is the set of topics this session follows.
	SubscribedTopics map[string]struct{}
	// AcknowledgedMessages is the set of message ids this session has seen.
	AcknowledgedMessages map[string]struct{}
	// LastActive is the unix time of the last subscribe, receive or
	// acknowledge. Publishing does not count as activity.
	LastActive int64
}

func newSession(sessionID string, now int64) *Session {
	return &Session{
		SessionID:            sessionID,
		SubscribedTopics:     make(map[string]struct{}),
		AcknowledgedMessages: make(map[string]struct{}),
		LastActive:           now,
	}
}

// Subscribe adds a topic to the session. Returns false if it was already
// subscribed.
func (s *Session) Subscribe(topic string) bool {
	if _, ok := s.SubscribedTopics[topic]; ok {
		return false
	}
	s.SubscribedTopics[topic] = struct{}{}
	return true
}

// Unsubscribe removes a topic from the session. Returns false if the session
// was not subscribed. Acknowledged message ids are kept; they age out with
// their messages.
func (s *Session) Unsubscribe(topic string) bool {
	if _, ok := s.SubscribedTopics[topic]; !ok {
		return false
	}
	delete(s.SubscribedTopics, topic)
	return true
}

// Acknowledge records a message id as seen. Rejected when the session is not
// subscribed to the topic. Re-acknowledging is a no-op that still succeeds.
func (s *Session) Acknowledge(topic, messageID string) bool {
	if _, ok := s.SubscribedTopics[topic]; !ok {
		return false
	}
	s.AcknowledgedMessages[messageID] = struct{}{}
	return true
}

// IsSubscribed reports whether the session follows the topic.
func (s *Session) IsSubscribed(topic string) bool {
	_, ok := s.SubscribedTopics[topic]
	return ok
}

// HasAcknowledged reports whether the session already saw the message.
func (s *Session) HasAcknowledged(messageID string) bool {
	_, ok := s.AcknowledgedMessages[messageID]
	return ok
}

// Refresh marks the session as active now.
func (s *Session) Refresh(now int64) {
	s.LastActive = now
}

// IsExpired reports whether the session idled past the given TTL.
func (s *Session) IsExpired(now, sessionTTL int64) bool {
	return now-s.LastActive > sessionTTL
}

// Topics returns the subscribed topics. Order is unspecified.
func (s *Session) Topics() []string {
	topics := make([]string, 0, len(s.SubscribedTopics))
	for topic := range s.SubscribedTopics {
		topics = append(topics, topic)
	}
	return topics
}
