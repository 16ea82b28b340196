// Package commbus provides the in-process message bus that carries
// orchestration lifecycle events, queries and commands.
//
// The bus provides three messaging patterns:
//   - Publish(event): fan-out to every subscriber
//   - Send(command): single handler, fire-and-forget
//   - QuerySync(query): single handler, request-response
package commbus

import (
	"context"
)

// =============================================================================
// COMMBUS PROTOCOLS
// =============================================================================

// Message is implemented by every bus message.
type Message interface {
	// Category returns the message category: "event", "query", or "command".
	Category() string
}

// Query is a message that expects a response.
type Query interface {
	Message
	// IsQuery is a marker method to distinguish queries from other messages.
	IsQuery()
}

// TypedMessage lets a message name its own routing type.
type TypedMessage interface {
	MessageType() string
}

// HandlerFunc processes a message and returns a response for queries.
type HandlerFunc func(ctx context.Context, message Message) (any, error)

// Middleware intercepts messages before and after handling.
type Middleware interface {
	// Before is called before message is handled.
	// Returns modified message, or nil to abort processing.
	Before(ctx context.Context, message Message) (Message, error)

	// After is called after message is handled.
	// Returns modified result.
	After(ctx context.Context, message Message, result any, err error) (any, error)
}

// CommBus is the message bus used by the orchestrator and its hosts.
type CommBus interface {
	// Publish publishes an event to all subscribers.
	Publish(ctx context.Context, event Message) error

	// Send sends a command to its handler.
	Send(ctx context.Context, command Message) error

	// QuerySync sends a query and waits for the response.
	QuerySync(ctx context.Context, query Query) (any, error)

	// Subscribe subscribes to an event type and returns an unsubscribe function.
	Subscribe(eventType string, handler HandlerFunc) func()

	// RegisterHandler registers the single handler for a query or command type.
	RegisterHandler(messageType string, handler HandlerFunc) error

	// AddMiddleware appends middleware. Before hooks run in registration
	// order, After hooks in reverse.
	AddMiddleware(middleware Middleware)

	// HasHandler reports whether a handler is registered for messageType.
	HasHandler(messageType string) bool

	// SubscriberCount returns the number of subscribers for eventType.
	SubscriberCount(eventType string) int
}
