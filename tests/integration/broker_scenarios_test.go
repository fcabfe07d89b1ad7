package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"dev.httpmq.broker/internal/broker"
	"dev.httpmq.broker/internal/config"
	"dev.httpmq.broker/internal/router"
)

const adminKey = "integration-admin-key"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		Broker: config.BrokerConfig{
			DefaultTTL:     3600,
			NeverExpireTTL: 315360000,
			SessionTTL:     3600,
			SweepInterval:  50 * time.Millisecond,
		},
		Admin:   config.AdminConfig{AuthKey: adminKey},
		Tracing: config.TracingConfig{Exporter: "none"},
	}
}

// startBroker runs the full stack behind an httptest server: the real
// router in front of a live broker with the background sweeper running,
// driven over HTTP the way clients drive a deployed instance.
func startBroker(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	b := broker.New(&broker.Config{SessionTTL: cfg.Broker.SessionTTL})

	sweeper := broker.NewSweeper(b, broker.SweeperConfig{Interval: cfg.Broker.SweepInterval}, nil)
	require.NoError(t, sweeper.Start(t.Context()))
	t.Cleanup(func() { _ = sweeper.Stop() })

	engine := router.SetupRouter(cfg, router.Dependencies{Broker: b, Logger: logger})
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

// doJSON performs a request and decodes the JSON response body into a map.
func doJSON(t *testing.T, client *http.Client, method, url string, payload any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func register(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	status, body := doJSON(t, client, "POST", baseURL+"/api/register", nil)
	require.Equal(t, http.StatusOK, status)
	sessionID, ok := body["session_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, sessionID)
	return sessionID
}

func subscribe(t *testing.T, client *http.Client, baseURL, sessionID, topic string) {
	t.Helper()
	status, body := doJSON(t, client, "POST", baseURL+"/api/subscribe/"+topic,
		map[string]any{"session_id": sessionID})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "subscribed", body["status"])
}

func receive(t *testing.T, client *http.Client, baseURL, sessionID string) []any {
	t.Helper()
	status, body := doJSON(t, client, "GET", baseURL+"/api/receive?session_id="+sessionID, nil)
	require.Equal(t, http.StatusOK, status)
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	return messages
}

func healthCount(t *testing.T, client *http.Client, baseURL, field string) int {
	t.Helper()
	status, body := doJSON(t, client, "GET", baseURL+"/health", nil)
	require.Equal(t, http.StatusOK, status)
	count, ok := body[field].(float64)
	require.True(t, ok)
	return int(count)
}

// TestChatRoomScenario drives the exchange a chat room client performs: two
// sessions share a room topic, each publishes, and each keeps seeing the
// room's messages until it acknowledges them.
func TestChatRoomScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	srv := startBroker(t, testConfig())
	client := srv.Client()
	room := "chatroom/lobby"

	alice := register(t, client, srv.URL)
	bob := register(t, client, srv.URL)
	require.NotEqual(t, alice, bob)

	subscribe(t, client, srv.URL, alice, room)
	subscribe(t, client, srv.URL, bob, room)

	status, body := doJSON(t, client, "POST", srv.URL+"/api/publish/"+room,
		map[string]any{"data": map[string]any{"from": "alice", "text": "hello"}})
	require.Equal(t, http.StatusOK, status)
	aliceMsgID := body["message_id"].(string)

	status, body = doJSON(t, client, "POST", srv.URL+"/api/publish/"+room,
		map[string]any{"data": map[string]any{"from": "bob", "text": "hi alice"}})
	require.Equal(t, http.StatusOK, status)
	bobMsgID := body["message_id"].(string)

	// Both participants see both messages, their own included.
	for _, sessionID := range []string{alice, bob} {
		messages := receive(t, client, srv.URL, sessionID)
		require.Len(t, messages, 2)
	}

	// Unacknowledged messages are delivered again on the next poll.
	messages := receive(t, client, srv.URL, bob)
	require.Len(t, messages, 2)

	for _, messageID := range []string{aliceMsgID, bobMsgID} {
		status, body = doJSON(t, client, "POST", srv.URL+"/api/acknowledge",
			map[string]any{"session_id": bob, "topic": room, "message_id": messageID})
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "success", body["status"])
	}

	assert.Empty(t, receive(t, client, srv.URL, bob))

	// Alice never acknowledged, so her view is unchanged.
	assert.Len(t, receive(t, client, srv.URL, alice), 2)

	// The admin view records who acknowledged what.
	status, body = doJSON(t, client, "GET", srv.URL+"/api/admin/messages/"+room+"?key="+adminKey, nil)
	require.Equal(t, http.StatusOK, status)
	adminMessages := body["messages"].([]any)
	require.Len(t, adminMessages, 2)
	for _, raw := range adminMessages {
		msg := raw.(map[string]any)
		acked := msg["clients_acknowledged"].([]any)
		assert.Equal(t, []any{bob}, acked)
	}
}

// TestMessageExpiryScenario checks that the background sweeper ages out
// short-lived messages with nobody polling.
func TestMessageExpiryScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	srv := startBroker(t, testConfig())
	client := srv.Client()

	status, _ := doJSON(t, client, "POST", srv.URL+"/api/publish/ephemeral",
		map[string]any{"ttl": 1, "data": "going away"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, healthCount(t, client, srv.URL, "messages"))

	require.Eventually(t, func() bool {
		return healthCount(t, client, srv.URL, "messages") == 0
	}, 5*time.Second, 100*time.Millisecond)

	// The emptied topic is gone from the admin listing too.
	status, body := doJSON(t, client, "GET", srv.URL+"/api/admin/topics?key="+adminKey, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["topics"])
}

// TestSessionExpiryScenario checks that the sweeper reaps idle sessions and
// that the server then treats the stale id as unknown.
func TestSessionExpiryScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testConfig()
	cfg.Broker.SessionTTL = 1
	srv := startBroker(t, cfg)
	client := srv.Client()

	sessionID := register(t, client, srv.URL)
	subscribe(t, client, srv.URL, sessionID, "news")
	require.Equal(t, 1, healthCount(t, client, srv.URL, "sessions"))

	require.Eventually(t, func() bool {
		return healthCount(t, client, srv.URL, "sessions") == 0
	}, 5*time.Second, 100*time.Millisecond)

	status, body := doJSON(t, client, "GET", srv.URL+"/api/subscribe?session_id="+sessionID, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "session_id not found", body["error"])
}

// TestConcurrentPublishScenario hammers one topic from several publishers
// and checks that a subscriber observes every message exactly once, in
// aggregate, across polls.
func TestConcurrentPublishScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	srv := startBroker(t, testConfig())
	client := srv.Client()

	sessionID := register(t, client, srv.URL)
	subscribe(t, client, srv.URL, sessionID, "firehose")

	const publishers = 8
	const perPublisher = 10

	var g errgroup.Group
	for p := 0; p < publishers; p++ {
		g.Go(func() error {
			for i := 0; i < perPublisher; i++ {
				payload := map[string]any{"data": fmt.Sprintf("publisher %d message %d", p, i)}
				data, err := json.Marshal(payload)
				if err != nil {
					return err
				}
				resp, err := client.Post(srv.URL+"/api/publish/firehose", "application/json", bytes.NewReader(data))
				if err != nil {
					return err
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					return fmt.Errorf("publish returned status %d", resp.StatusCode)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	messages := receive(t, client, srv.URL, sessionID)
	require.Len(t, messages, publishers*perPublisher)

	seen := make(map[string]bool, len(messages))
	for _, raw := range messages {
		msg := raw.(map[string]any)
		id := msg["message_id"].(string)
		assert.False(t, seen[id])
		seen[id] = true
	}

	assert.Equal(t, publishers*perPublisher, healthCount(t, client, srv.URL, "messages"))
}
