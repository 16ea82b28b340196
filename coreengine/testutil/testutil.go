// Package testutil provides shared test utilities and mocks.
//
// All mocks in this package are safe for concurrent use so they can back
// parallel dispatch tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/envelope"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
)

// =============================================================================
// MOCK AGENT
// =============================================================================

// MockAgent implements agents.CapabilityAgent for testing.
type MockAgent struct {
	// Data is returned in a success Response when Err is empty.
	Data any

	// Err causes Process to return an error Response with this message.
	Err string

	// Status overrides the response status when set.
	Status envelope.Status

	// Delay simulates agent latency. Honors context cancellation.
	Delay time.Duration

	// PanicWith makes Process panic with this value when non-nil.
	PanicWith any

	// ProcessFunc, if set, is called instead of the canned behavior.
	ProcessFunc func(context.Context, *envelope.Envelope) *envelope.Response

	// Calls records every envelope received.
	Calls []*envelope.Envelope

	name string
	mu   sync.Mutex
}

// NewMockAgent creates a MockAgent that succeeds with {"agent": name}.
func NewMockAgent(name string) *MockAgent {
	return &MockAgent{
		name: name,
		Data: map[string]any{"agent": name},
	}
}

// Process implements agents.CapabilityAgent.
func (m *MockAgent) Process(ctx context.Context, env *envelope.Envelope) *envelope.Response {
	m.mu.Lock()
	m.Calls = append(m.Calls, env)
	customFunc := m.ProcessFunc
	delay, panicWith, errMsg, status, data := m.Delay, m.PanicWith, m.Err, m.Status, m.Data
	m.mu.Unlock()

	if customFunc != nil {
		return customFunc(ctx, env)
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return envelope.Failure(m.name, "%v", ctx.Err())
		}
	}

	if panicWith != nil {
		panic(panicWith)
	}

	if errMsg != "" {
		return envelope.Failure(m.name, "%s", errMsg)
	}

	resp := envelope.Success(m.name, data)
	if status != "" {
		resp.Status = status
	}
	return resp
}

// WithData sets the success payload.
func (m *MockAgent) WithData(data any) *MockAgent {
	m.Data = data
	return m
}

// WithError configures the mock to return an error Response.
func (m *MockAgent) WithError(msg string) *MockAgent {
	m.Err = msg
	return m
}

// WithStatus overrides the response status.
func (m *MockAgent) WithStatus(status envelope.Status) *MockAgent {
	m.Status = status
	return m
}

// WithDelay adds latency simulation.
func (m *MockAgent) WithDelay(d time.Duration) *MockAgent {
	m.Delay = d
	return m
}

// WithPanic makes the mock panic.
func (m *MockAgent) WithPanic(v any) *MockAgent {
	m.PanicWith = v
	return m
}

// GetCallCount returns the number of calls (thread-safe).
func (m *MockAgent) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent envelope, or nil.
func (m *MockAgent) LastCall() *envelope.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	return m.Calls[len(m.Calls)-1]
}

// =============================================================================
// MOCK EVENT CONTEXT
// =============================================================================

// MockEventContext implements agents.EventContext for testing.
type MockEventContext struct {
	Events []AgentEvent

	// Error causes Emit* to return this error.
	Error error

	mu sync.Mutex
}

// AgentEvent represents a captured agent event.
type AgentEvent struct {
	Type      string // "started" or "completed"
	AgentName string
	Status    envelope.Status
}

// NewMockEventContext creates a MockEventContext.
func NewMockEventContext() *MockEventContext {
	return &MockEventContext{}
}

// EmitAgentStarted implements agents.EventContext.
func (m *MockEventContext) EmitAgentStarted(_ context.Context, agentName string, _ *envelope.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, AgentEvent{Type: "started", AgentName: agentName})
	return m.Error
}

// EmitAgentCompleted implements agents.EventContext.
func (m *MockEventContext) EmitAgentCompleted(_ context.Context, agentName string, resp *envelope.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, AgentEvent{Type: "completed", AgentName: agentName, Status: resp.Status})
	return m.Error
}

// GetEvents returns captured events (thread-safe).
func (m *MockEventContext) GetEvents() []AgentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]AgentEvent, len(m.Events))
	copy(copied, m.Events)
	return copied
}

// GetCompletedAgents returns names of agents that completed, in order.
func (m *MockEventContext) GetCompletedAgents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, e := range m.Events {
		if e.Type == "completed" {
			names = append(names, e.AgentName)
		}
	}
	return names
}

// =============================================================================
// MOCK LOGGER
// =============================================================================

// MockLogger implements logging.Logger for testing.
type MockLogger struct {
	// Logs captures all log entries.
	Logs []LogEntry

	fields []any
	parent *MockLogger
	mu     sync.Mutex
}

// LogEntry represents a captured log entry.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// NewMockLogger creates a MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{
		Logs: make([]LogEntry, 0),
	}
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.log("debug", msg, keysAndValues...)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.log("info", msg, keysAndValues...)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.log("warn", msg, keysAndValues...)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.log("error", msg, keysAndValues...)
}

// Bind returns a child logger that records into the same entry list.
func (m *MockLogger) Bind(fields ...any) logging.Logger {
	bound := append(append([]any{}, m.fields...), fields...)
	return &MockLogger{fields: bound, parent: m.root()}
}

func (m *MockLogger) root() *MockLogger {
	if m.parent != nil {
		return m.parent
	}
	return m
}

func (m *MockLogger) log(level, msg string, keysAndValues ...any) {
	all := append(append([]any{}, m.fields...), keysAndValues...)
	fields := make(map[string]any)
	for i := 0; i < len(all)-1; i += 2 {
		if key, ok := all[i].(string); ok {
			fields[key] = all[i+1]
		}
	}

	root := m.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.Logs = append(root.Logs, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  fields,
	})
}

// GetLogs returns captured logs (thread-safe).
func (m *MockLogger) GetLogs() []LogEntry {
	root := m.root()
	root.mu.Lock()
	defer root.mu.Unlock()

	copied := make([]LogEntry, len(root.Logs))
	copy(copied, root.Logs)
	return copied
}

// HasLog checks if a log message exists at the given level.
func (m *MockLogger) HasLog(level, message string) bool {
	for _, log := range m.GetLogs() {
		if log.Level == level && log.Message == message {
			return true
		}
	}
	return false
}

// FindLog returns the first entry with message, if any.
func (m *MockLogger) FindLog(message string) (LogEntry, bool) {
	for _, log := range m.GetLogs() {
		if log.Message == message {
			return log, true
		}
	}
	return LogEntry{}, false
}

// Clear removes all captured logs.
func (m *MockLogger) Clear() {
	root := m.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.Logs = nil
}

// =============================================================================
// ENVELOPE HELPERS
// =============================================================================

// NewTestEnvelope creates an envelope for task owned by "test-user".
func NewTestEnvelope(task string) *envelope.Envelope {
	return envelope.New(task, envelope.Metadata{
		UserID:    "test-user",
		SessionID: "test-session",
	})
}
