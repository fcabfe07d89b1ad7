package broker

import (
	"errors"
	"fmt"
)

// ErrorCode represents a broker error code.
type ErrorCode string

const (
	// Session errors
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"

	// Subscription errors
	ErrCodeAlreadySubscribed ErrorCode = "ALREADY_SUBSCRIBED"
	ErrCodeNotSubscribed     ErrorCode = "NOT_SUBSCRIBED"

	// Message errors
	ErrCodeMessageNotFound ErrorCode = "MESSAGE_NOT_FOUND"
)

// Common sentinel errors for easy comparison.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrAlreadySubscribed = errors.New("already subscribed")
	ErrNotSubscribed     = errors.New("not subscribed to topic")
	ErrMessageNotFound   = errors.New("message not found")
	ErrSweeperRunning    = errors.New("sweeper already running")
)

// BrokerError represents a broker error with detailed context.
type BrokerError struct {
	// Code is the error code.
	Code ErrorCode `json:"code"`
	// Message is the human-readable error message.
	Message string `json:"message"`
	// Cause is the underlying error.
	Cause error `json:"-"`
	// SessionID is the session involved (if applicable).
	SessionID string `json:"session_id,omitempty"`
	// Topic is the topic involved (if applicable).
	Topic string `json:"topic,omitempty"`
	// MessageID is the message id involved (if applicable).
	MessageID string `json:"message_id,omitempty"`
}

// NewBrokerError creates a new BrokerError.
func NewBrokerError(code ErrorCode, message string, cause error) *BrokerError {
	return &BrokerError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *BrokerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *BrokerError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *BrokerError) Is(target error) bool {
	if t, ok := target.(*BrokerError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Cause, target)
}

// WithSessionID sets the session id.
func (e *BrokerError) WithSessionID(id string) *BrokerError {
	e.SessionID = id
	return e
}

// WithTopic sets the topic name.
func (e *BrokerError) WithTopic(topic string) *BrokerError {
	e.Topic = topic
	return e
}

// WithMessageID sets the message id.
func (e *BrokerError) WithMessageID(id string) *BrokerError {
	e.MessageID = id
	return e
}

// SessionNotFoundError reports an unknown (or already swept) session id.
func SessionNotFoundError(sessionID string) *BrokerError {
	return NewBrokerError(ErrCodeSessionNotFound, "session not found", ErrSessionNotFound).
		WithSessionID(sessionID)
}

// AlreadySubscribedError reports a duplicate subscription.
func AlreadySubscribedError(sessionID, topic string) *BrokerError {
	return NewBrokerError(ErrCodeAlreadySubscribed, "already subscribed", ErrAlreadySubscribed).
		WithSessionID(sessionID).
		WithTopic(topic)
}

// NotSubscribedError reports an operation on a topic the session does not follow.
func NotSubscribedError(sessionID, topic string) *BrokerError {
	return NewBrokerError(ErrCodeNotSubscribed, "not subscribed to topic", ErrNotSubscribed).
		WithSessionID(sessionID).
		WithTopic(topic)
}

// MessageNotFoundError reports a message id absent from the topic.
func MessageNotFoundError(topic, messageID string) *BrokerError {
	return NewBrokerError(ErrCodeMessageNotFound, "message not found", ErrMessageNotFound).
		WithTopic(topic).
		WithMessageID(messageID)
}

// GetBrokerError extracts a BrokerError from an error chain.
func GetBrokerError(err error) *BrokerError {
	var brokerErr *BrokerError
	if errors.As(err, &brokerErr) {
		return brokerErr
	}
	return nil
}
