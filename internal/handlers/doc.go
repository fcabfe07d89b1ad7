// Package handlers implements the HTTP request handlers for the httpmq REST API.
//
// This package is the translation layer between HTTP and the broker: it
// resolves session identity, validates input, calls one broker operation and
// projects the result (or its typed error) onto a status code and a JSON body.
// Handlers hold no state of their own beyond their dependencies.
//
// # Public Endpoints
//
// The message queue API lives under /api:
//
//	POST   /api/register           - Create a session, returns its id
//	POST   /api/publish/*topic     - Publish a message to a topic
//	GET    /api/subscribe          - List the session's subscriptions
//	POST   /api/subscribe/*topic   - Subscribe the session to a topic
//	DELETE /api/subscribe/*topic   - Unsubscribe the session from a topic
//	GET    /api/receive            - Fetch pending messages, newest first
//	POST   /api/acknowledge        - Acknowledge one message
//
// # Admin Endpoints
//
// Admin endpoints expose broker internals and sit behind the shared-key
// middleware (see internal/middleware):
//
//	GET /api/admin/topics           - List every live topic
//	GET /api/admin/messages/*topic  - List a topic's messages, expiry included
//
// # Topic Names
//
// Topics are captured as the whole path suffix, so "chat/room/1" is one topic
// name containing literal slashes, not three route segments. The wildcard
// parameter keeps its leading slash in gin; topicParam strips it.
//
// # Session Identity
//
// Requests identify their session by a Session-Id header, a session_id JSON
// body field or a session_id query parameter, tried in that order. See
// resolveSessionID.
//
// # Handler Structure
//
// Each handler follows the pattern:
//
//	type MessageHandler struct {
//	    broker    *broker.Broker
//	    collector *metrics.Collector
//	    logger    *logrus.Logger
//	}
//
//	func (h *MessageHandler) Publish(c *gin.Context) {
//	    // Parse request
//	    // Call the broker
//	    // Project the result to a status code and DTO
//	}
//
// # Error Handling
//
// Error bodies carry a single field:
//
//	{"error": "session_id not found"}
//
// Status codes follow the broker contract: 400 for an unknown session on
// subscribe and for malformed acknowledge requests, 404 for subscription
// conflicts, unknown sessions on receive and failed acknowledgements, 401
// from the admin middleware.
package handlers
