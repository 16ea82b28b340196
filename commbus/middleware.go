package commbus

import (
	"context"
	"sync"
	"time"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
)

// =============================================================================
// LOGGING MIDDLEWARE
// =============================================================================

// LoggingMiddleware logs all message traffic at debug level and failures at warn.
type LoggingMiddleware struct {
	logger logging.Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware.
func NewLoggingMiddleware(logger logging.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logging.OrNop(logger)}
}

// Before logs message receipt.
func (m *LoggingMiddleware) Before(ctx context.Context, message Message) (Message, error) {
	m.logger.Debug("bus_message", "category", message.Category(), "type", GetMessageType(message))
	return message, nil
}

// After logs message completion.
func (m *LoggingMiddleware) After(ctx context.Context, message Message, result any, err error) (any, error) {
	if err != nil {
		m.logger.Warn("bus_message_failed", "type", GetMessageType(message), "error", err.Error())
	} else {
		m.logger.Debug("bus_message_completed", "type", GetMessageType(message))
	}
	return result, nil
}

// =============================================================================
// CIRCUIT BREAKER MIDDLEWARE
// =============================================================================

// Circuit states.
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half-open"
)

// CircuitBreakerState is the breaker state for one message type.
type CircuitBreakerState struct {
	Failures    int
	LastFailure time.Time
	State       string
}

// CircuitBreakerMiddleware drops messages of a type whose handlers or
// subscribers keep failing, so a broken downstream (for example an event
// forwarder whose broker is gone) stops costing every request.
//
// The circuit opens after failureThreshold consecutive failures, lets one
// message through after resetTimeout (half-open) and closes on success.
// A threshold of 0 never opens.
type CircuitBreakerMiddleware struct {
	failureThreshold int
	resetTimeout     time.Duration
	excludedTypes    map[string]struct{}
	states           map[string]*CircuitBreakerState
	logger           logging.Logger
	now              func() time.Time
	mu               sync.Mutex
}

// NewCircuitBreakerMiddleware creates a new CircuitBreakerMiddleware.
func NewCircuitBreakerMiddleware(failureThreshold int, resetTimeout time.Duration, excludedTypes []string, logger logging.Logger) *CircuitBreakerMiddleware {
	excluded := make(map[string]struct{}, len(excludedTypes))
	for _, t := range excludedTypes {
		excluded[t] = struct{}{}
	}

	return &CircuitBreakerMiddleware{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		excludedTypes:    excluded,
		states:           make(map[string]*CircuitBreakerState),
		logger:           logging.OrNop(logger),
		now:              time.Now,
	}
}

func (m *CircuitBreakerMiddleware) getState(msgType string) *CircuitBreakerState {
	if _, exists := m.states[msgType]; !exists {
		m.states[msgType] = &CircuitBreakerState{State: CircuitClosed}
	}
	return m.states[msgType]
}

// Before blocks the message while its circuit is open.
func (m *CircuitBreakerMiddleware) Before(ctx context.Context, message Message) (Message, error) {
	msgType := GetMessageType(message)
	if _, excluded := m.excludedTypes[msgType]; excluded {
		return message, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.getState(msgType)
	if state.State == CircuitOpen {
		if m.now().Sub(state.LastFailure) >= m.resetTimeout {
			state.State = CircuitHalfOpen
			m.logger.Info("circuit_half_open", "type", msgType)
		} else {
			return nil, nil
		}
	}

	return message, nil
}

// After records the outcome and moves the circuit between states.
func (m *CircuitBreakerMiddleware) After(ctx context.Context, message Message, result any, err error) (any, error) {
	msgType := GetMessageType(message)
	if _, excluded := m.excludedTypes[msgType]; excluded {
		return result, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.getState(msgType)
	if err != nil {
		state.Failures++
		state.LastFailure = m.now()

		switch {
		case state.State == CircuitHalfOpen:
			state.State = CircuitOpen
			m.logger.Warn("circuit_reopened", "type", msgType)
		case m.failureThreshold > 0 && state.Failures >= m.failureThreshold:
			state.State = CircuitOpen
			m.logger.Warn("circuit_opened", "type", msgType, "failures", state.Failures)
		}
		return result, nil
	}

	if state.State == CircuitHalfOpen {
		m.logger.Info("circuit_closed", "type", msgType)
	}
	state.State = CircuitClosed
	state.Failures = 0
	return result, nil
}

// GetStates returns the current circuit state per message type.
func (m *CircuitBreakerMiddleware) GetStates() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[string]string, len(m.states))
	for k, v := range m.states {
		result[k] = v.State
	}
	return result
}

// Reset clears the state of msgType, or of every type when msgType is empty.
func (m *CircuitBreakerMiddleware) Reset(msgType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msgType != "" {
		delete(m.states, msgType)
	} else {
		m.states = make(map[string]*CircuitBreakerState)
	}
}

var (
	_ Middleware = (*LoggingMiddleware)(nil)
	_ Middleware = (*CircuitBreakerMiddleware)(nil)
)
