package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"dev.httpmq.broker/internal/broker"
	"dev.httpmq.broker/internal/config"
	"dev.httpmq.broker/internal/observability/metrics"
)

// setupTestRouter wires every handler the way cmd/httpmq does, minus the
// middleware, on a manual clock starting at unix 1000. Tests advance the
// clock to drive expiry.
func setupTestRouter() (*gin.Engine, *int64) {
	gin.SetMode(gin.TestMode)

	clock := new(int64)
	*clock = 1000

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	b := broker.New(&broker.Config{
		SessionTTL: 3600,
		Now:        func() int64 { return *clock },
	})

	cfg := config.BrokerConfig{
		DefaultTTL:     3600,
		NeverExpireTTL: 315360000,
		SessionTTL:     3600,
	}

	collector := metrics.NewCollector(nil)

	r := gin.New()
	api := r.Group("/api")
	RegisterSessionRoutes(api, NewSessionHandler(b, collector, logger))
	RegisterMessageRoutes(api, NewMessageHandler(b, cfg, collector, logger))
	RegisterAdminRoutes(api.Group("/admin"), NewAdminHandler(b, logger))
	RegisterHealthRoutes(r, NewHealthHandler(b))

	return r, clock
}

// doRequest serves one request against the router. A non-nil body is sent as
// JSON.
func doRequest(r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(data)
	}

	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	return doRequest(r, method, path, body, nil)
}

func registerSession(t *testing.T, r *gin.Engine) string {
	t.Helper()

	w := doJSON(r, http.MethodPost, "/api/register", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func subscribeSession(t *testing.T, r *gin.Engine, sessionID, topic string) {
	t.Helper()

	w := doJSON(r, http.MethodPost, "/api/subscribe/"+topic, gin.H{"session_id": sessionID})
	require.Equal(t, http.StatusOK, w.Code)
}

func publishMessage(t *testing.T, r *gin.Engine, topic string, body any) PublishResponse {
	t.Helper()

	w := doJSON(r, http.MethodPost, "/api/publish/"+topic, body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PublishResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "success", resp.Status)
	require.NotEmpty(t, resp.MessageID)
	return resp
}

func receiveMessages(t *testing.T, r *gin.Engine, sessionID string) []MessageResponse {
	t.Helper()

	w := doJSON(r, http.MethodGet, "/api/receive?session_id="+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp MessagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Messages
}
