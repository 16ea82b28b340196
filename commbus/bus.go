package commbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
)

// DefaultQueryTimeout bounds QuerySync when no timeout is configured.
const DefaultQueryTimeout = 5 * time.Second

type subscription struct {
	id      uint64
	handler HandlerFunc
}

// InMemoryCommBus is a thread-safe CommBus for single-process deployments.
//
// Usage:
//
//	bus := NewInMemoryCommBus(5*time.Second, logger)
//	bus.Subscribe("AgentCompleted", telemetryHandler)
//	bus.RegisterHandler("ListAgents", listHandler)
//
//	bus.Publish(ctx, &AgentCompleted{...})
//	names, _ := bus.QuerySync(ctx, &ListAgents{})
type InMemoryCommBus struct {
	handlers     map[string]HandlerFunc
	subscribers  map[string][]subscription
	middleware   []Middleware
	queryTimeout time.Duration
	nextID       uint64
	logger       logging.Logger
	mu           sync.RWMutex
}

// NewInMemoryCommBus creates a new InMemoryCommBus.
func NewInMemoryCommBus(queryTimeout time.Duration, logger logging.Logger) *InMemoryCommBus {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	return &InMemoryCommBus{
		handlers:     make(map[string]HandlerFunc),
		subscribers:  make(map[string][]subscription),
		middleware:   make([]Middleware, 0),
		queryTimeout: queryTimeout,
		logger:       logging.OrNop(logger),
	}
}

// =============================================================================
// MESSAGING
// =============================================================================

// Publish delivers an event to all subscribers concurrently and waits for them.
// Subscriber errors and panics are logged and never returned.
func (b *InMemoryCommBus) Publish(ctx context.Context, event Message) error {
	eventType := GetMessageType(event)

	processed, err := b.runMiddlewareBefore(ctx, event)
	if err != nil {
		return err
	}
	if processed == nil {
		b.logger.Debug("bus_event_aborted", "type", eventType)
		return nil
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subscribers[eventType]))
	copy(subs, b.subscribers[eventType])
	b.mu.RUnlock()

	if len(subs) == 0 {
		_, _ = b.runMiddlewareAfter(ctx, processed, nil, nil)
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(subs))
	for i, sub := range subs {
		wg.Add(1)
		go func(idx int, h HandlerFunc) {
			defer wg.Done()
			errs[idx] = b.callSubscriber(ctx, eventType, h, processed)
		}(i, sub.handler)
	}
	wg.Wait()

	var firstErr error
	for _, e := range errs {
		if e != nil {
			firstErr = e
			break
		}
	}

	_, _ = b.runMiddlewareAfter(ctx, processed, nil, firstErr)
	return nil
}

// Send delivers a command to its handler. A missing handler is not an error.
func (b *InMemoryCommBus) Send(ctx context.Context, command Message) error {
	messageType := GetMessageType(command)

	processed, err := b.runMiddlewareBefore(ctx, command)
	if err != nil {
		return err
	}
	if processed == nil {
		b.logger.Debug("bus_command_aborted", "type", messageType)
		return nil
	}

	b.mu.RLock()
	handler, exists := b.handlers[messageType]
	b.mu.RUnlock()

	if !exists {
		b.logger.Debug("bus_no_handler", "type", messageType)
		return nil
	}

	_, handlerErr := handler(ctx, processed)
	if handlerErr != nil {
		b.logger.Warn("bus_command_failed", "type", messageType, "error", handlerErr.Error())
		handlerErr = &HandlerError{MessageType: messageType, Cause: handlerErr}
	}

	_, _ = b.runMiddlewareAfter(ctx, processed, nil, handlerErr)
	return handlerErr
}

// QuerySync sends a query and waits for its handler, bounded by the query timeout.
func (b *InMemoryCommBus) QuerySync(ctx context.Context, query Query) (any, error) {
	messageType := GetMessageType(query)

	processed, err := b.runMiddlewareBefore(ctx, query)
	if err != nil {
		return nil, err
	}
	if processed == nil {
		return nil, ErrAborted
	}

	b.mu.RLock()
	handler, exists := b.handlers[messageType]
	b.mu.RUnlock()

	if !exists {
		return nil, NewNoHandlerError(messageType)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, b.queryTimeout)
	defer cancel()

	type result struct {
		value any
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, e := handler(timeoutCtx, processed)
		resultCh <- result{value: v, err: e}
	}()

	select {
	case <-timeoutCtx.Done():
		err := NewQueryTimeoutError(messageType, b.queryTimeout)
		_, _ = b.runMiddlewareAfter(ctx, processed, nil, err)
		return nil, err
	case res := <-resultCh:
		if res.err != nil {
			res.err = &HandlerError{MessageType: messageType, Cause: res.err}
		}
		return b.runMiddlewareAfter(ctx, processed, res.value, res.err)
	}
}

// =============================================================================
// REGISTRATION
// =============================================================================

// Subscribe subscribes to an event type. The returned function removes
// exactly this subscription and is safe to call more than once.
func (b *InMemoryCommBus) Subscribe(eventType string, handler HandlerFunc) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	b.logger.Debug("bus_subscribed", "type", eventType)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// RegisterHandler registers the single handler for a message type.
func (b *InMemoryCommBus) RegisterHandler(messageType string, handler HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.handlers[messageType]; exists {
		return NewHandlerAlreadyRegisteredError(messageType)
	}

	b.handlers[messageType] = handler
	b.logger.Debug("bus_handler_registered", "type", messageType)
	return nil
}

// AddMiddleware appends middleware to the chain.
func (b *InMemoryCommBus) AddMiddleware(middleware Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.middleware = append(b.middleware, middleware)
}

// =============================================================================
// INTROSPECTION
// =============================================================================

// HasHandler checks if a handler is registered for a message type.
func (b *InMemoryCommBus) HasHandler(messageType string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.handlers[messageType]
	return exists
}

// SubscriberCount returns the number of subscribers for eventType.
func (b *InMemoryCommBus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers[eventType])
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (b *InMemoryCommBus) callSubscriber(ctx context.Context, eventType string, h HandlerFunc, event Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			b.logger.Error("bus_subscriber_panic", "type", eventType, "panic", fmt.Sprint(r))
		}
	}()

	if _, err = h(ctx, event); err != nil {
		b.logger.Warn("bus_subscriber_failed", "type", eventType, "error", err.Error())
	}
	return err
}

// runMiddlewareBefore runs the Before chain in registration order.
func (b *InMemoryCommBus) runMiddlewareBefore(ctx context.Context, message Message) (Message, error) {
	b.mu.RLock()
	chain := make([]Middleware, len(b.middleware))
	copy(chain, b.middleware)
	b.mu.RUnlock()

	current := message
	for _, mw := range chain {
		next, err := mw.Before(ctx, current)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, nil
		}
		current = next
	}
	return current, nil
}

// runMiddlewareAfter runs the After chain in reverse order.
func (b *InMemoryCommBus) runMiddlewareAfter(ctx context.Context, message Message, result any, err error) (any, error) {
	b.mu.RLock()
	chain := make([]Middleware, len(b.middleware))
	copy(chain, b.middleware)
	b.mu.RUnlock()

	current := result
	for i := len(chain) - 1; i >= 0; i-- {
		next, afterErr := chain[i].After(ctx, message, current, err)
		if afterErr != nil {
			err = afterErr
		}
		if next != nil {
			current = next
		}
	}
	return current, err
}

// Ensure InMemoryCommBus implements CommBus interface.
var _ CommBus = (*InMemoryCommBus)(nil)
