// Package httpmq provides a Go SDK for the httpmq message queue API
package httpmq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the main client for interacting with the httpmq API
type Client struct {
	baseURL    string
	sessionID  string
	adminKey   string
	httpClient *http.Client
}

// ClientConfig represents client configuration
type ClientConfig struct {
	BaseURL string
	// SessionID resumes an existing session. Leave empty and call
	// Register to obtain a fresh one.
	SessionID  string
	AdminKey   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a new httpmq client
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &Client{
		baseURL:    config.BaseURL,
		sessionID:  config.SessionID,
		adminKey:   config.AdminKey,
		httpClient: httpClient,
	}
}

// APIError represents a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// SessionID returns the session id the client currently acts as.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Register creates a new session and stores its id for subsequent calls
func (c *Client) Register(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, "POST", "/api/register", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	c.sessionID = result.SessionID
	return result.SessionID, nil
}

// Subscriptions lists the topics the session is subscribed to
func (c *Client) Subscriptions(ctx context.Context) ([]string, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/subscribe", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Topics []string `json:"topics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Topics, nil
}

// Subscribe subscribes the session to a topic
func (c *Client) Subscribe(ctx context.Context, topic string) error {
	resp, err := c.doRequest(ctx, "POST", "/api/subscribe/"+topic, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Unsubscribe removes the session's subscription to a topic
func (c *Client) Unsubscribe(ctx context.Context, topic string) error {
	resp, err := c.doRequest(ctx, "DELETE", "/api/subscribe/"+topic, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// PublishResult represents the server's record of a published message
type PublishResult struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Timestamp int64  `json:"timestamp"`
}

// Publish publishes a message to a topic with the server's default TTL
func (c *Client) Publish(ctx context.Context, topic string, data any) (*PublishResult, error) {
	return c.publish(ctx, topic, data, nil)
}

// PublishWithTTL publishes a message that expires after ttl seconds.
// A negative ttl asks the server to keep the message until acknowledged.
func (c *Client) PublishWithTTL(ctx context.Context, topic string, data any, ttl int64) (*PublishResult, error) {
	return c.publish(ctx, topic, data, &ttl)
}

func (c *Client) publish(ctx context.Context, topic string, data any, ttl *int64) (*PublishResult, error) {
	payload := struct {
		TTL  *int64 `json:"ttl,omitempty"`
		Data any    `json:"data"`
	}{TTL: ttl, Data: data}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/publish/"+topic, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result PublishResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Message represents a message delivered to a subscriber
type Message struct {
	MessageID string          `json:"message_id"`
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	TTL       int64           `json:"ttl"`
}

// Receive fetches the pending messages for the session, newest first
func (c *Client) Receive(ctx context.Context) ([]Message, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/receive", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Messages []Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Messages, nil
}

// Acknowledge confirms delivery of a message to this session
func (c *Client) Acknowledge(ctx context.Context, topic, messageID string) error {
	payload := struct {
		SessionID string `json:"session_id"`
		Topic     string `json:"topic"`
		MessageID string `json:"message_id"`
	}{SessionID: c.sessionID, Topic: topic, MessageID: messageID}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/acknowledge", body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// AdminMessage represents a message as seen through the admin API
type AdminMessage struct {
	MessageID           string          `json:"message_id"`
	Topic               string          `json:"topic"`
	Data                json.RawMessage `json:"data"`
	Timestamp           int64           `json:"timestamp"`
	TTL                 int64           `json:"ttl"`
	ExpireTS            int64           `json:"expire_ts"`
	ClientsAcknowledged []string        `json:"clients_acknowledged"`
}

// AdminTopics lists every live topic. Requires the admin key.
func (c *Client) AdminTopics(ctx context.Context) ([]string, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/admin/topics", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Topics []string `json:"topics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Topics, nil
}

// AdminMessages lists the messages of a topic with their acknowledgement
// state. Requires the admin key.
func (c *Client) AdminMessages(ctx context.Context, topic string) ([]AdminMessage, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/admin/messages/"+topic, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Messages []AdminMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Messages, nil
}

// Health represents the broker's health report
type Health struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Topics   int    `json:"topics"`
	Messages int    `json:"messages"`
}

// GetHealth gets the overall health of the broker
func (c *Client) GetHealth(ctx context.Context) (*Health, error) {
	resp, err := c.doRequest(ctx, "GET", "/health", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result Health
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set("Session-Id", c.sessionID)
	}
	if c.adminKey != "" {
		// The server matches the raw key, not a bearer scheme.
		req.Header.Set("Authorization", c.adminKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		var serverErr struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &serverErr); err == nil && serverErr.Error != "" {
			apiErr.Message = serverErr.Error
		} else {
			apiErr.Message = string(raw)
		}
		return nil, apiErr
	}

	return resp, nil
}
