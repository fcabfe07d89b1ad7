package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	s := newSession("session-1", 1000)

	require.NotNil(t, s)
	assert.Equal(t, "session-1", s.SessionID)
	assert.Equal(t, int64(1000), s.LastActive)
	assert.Empty(t, s.SubscribedTopics)
	assert.Empty(t, s.AcknowledgedMessages)
}

func TestSession_Subscribe(t *testing.T) {
	s := newSession("s", 1000)

	assert.True(t, s.Subscribe("/news"))
	assert.True(t, s.IsSubscribed("/news"))

	// Subscribing twice is rejected.
	assert.False(t, s.Subscribe("/news"))
}

func TestSession_Unsubscribe(t *testing.T) {
	s := newSession("s", 1000)
	s.Subscribe("/news")

	assert.True(t, s.Unsubscribe("/news"))
	assert.False(t, s.IsSubscribed("/news"))

	// Not subscribed anymore.
	assert.False(t, s.Unsubscribe("/news"))
}

func TestSession_UnsubscribeKeepsAcknowledgements(t *testing.T) {
	s := newSession("s", 1000)
	s.Subscribe("/news")
	s.Acknowledge("/news", "msg-1")

	s.Unsubscribe("/news")
	assert.True(t, s.HasAcknowledged("msg-1"))
}

func TestSession_Acknowledge(t *testing.T) {
	s := newSession("s", 1000)

	// Rejected without a subscription.
	assert.False(t, s.Acknowledge("/news", "msg-1"))
	assert.False(t, s.HasAcknowledged("msg-1"))

	s.Subscribe("/news")
	assert.True(t, s.Acknowledge("/news", "msg-1"))
	assert.True(t, s.HasAcknowledged("msg-1"))

	// Re-acknowledging still succeeds.
	assert.True(t, s.Acknowledge("/news", "msg-1"))
}

func TestSession_IsExpired(t *testing.T) {
	s := newSession("s", 1000)

	assert.False(t, s.IsExpired(1099, 100))
	// Exactly at the TTL the session still lives.
	assert.False(t, s.IsExpired(1100, 100))
	assert.True(t, s.IsExpired(1101, 100))
}

func TestSession_Refresh(t *testing.T) {
	s := newSession("s", 1000)

	s.Refresh(1090)
	assert.Equal(t, int64(1090), s.LastActive)
	assert.False(t, s.IsExpired(1190, 100))
	assert.True(t, s.IsExpired(1191, 100))
}

func TestSession_Topics(t *testing.T) {
	s := newSession("s", 1000)
	assert.Empty(t, s.Topics())

	s.Subscribe("/a")
	s.Subscribe("/b")
	assert.ElementsMatch(t, []string{"/a", "/b"}, s.Topics())
}
