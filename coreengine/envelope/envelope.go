package envelope

import (
	"time"

	"github.com/google/uuid"
)

// PreviousResultKey is the reserved context key carrying the output of the
// preceding agent in a sequential plan.
const PreviousResultKey = "previous_result"

// Context keys set by the orchestrator on every root envelope.
const (
	IntentKey     = "intent"
	ConfidenceKey = "confidence"
	EntitiesKey   = "entities"
	PlatformsKey  = "platforms"
	ComplexityKey = "complexity"
)

// OrchestratorSender is the sender tag used for envelopes created by the orchestrator.
const OrchestratorSender = "orchestrator"

// =============================================================================
// CONTEXT
// =============================================================================

// Context is the free-form key/value context carried by an envelope.
type Context map[string]any

// Clone returns a deep copy of the context.
func (c Context) Clone() Context {
	if c == nil {
		return Context{}
	}
	return Context(deepCopyAnyMap(c))
}

// String returns the string stored at key, or "" if absent or not a string.
func (c Context) String(key string) string {
	if s, ok := c[key].(string); ok {
		return s
	}
	return ""
}

// Strings returns the string slice stored at key. []any elements that are not
// strings are skipped.
func (c Context) Strings(key string) []string {
	switch v := c[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Map returns the map stored at key, or nil if absent or not a map.
func (c Context) Map(key string) map[string]any {
	if m, ok := c[key].(map[string]any); ok {
		return m
	}
	return nil
}

// PreviousResult returns the payload left by the preceding agent, if any.
func (c Context) PreviousResult() (any, bool) {
	v, ok := c[PreviousResultKey]
	return v, ok
}

// WithPreviousResult returns a copy of the context with previous_result set.
func (c Context) WithPreviousResult(data any) Context {
	next := c.Clone()
	next[PreviousResultKey] = data
	return next
}

// =============================================================================
// ENVELOPE
// =============================================================================

// Metadata identifies who a request belongs to.
type Metadata struct {
	UserID         string `json:"user_id"`
	SessionID      string `json:"session_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Envelope is the request handed to a capability agent.
//
// Envelopes are created per request and per hop. They are never persisted.
type Envelope struct {
	ID                 string    `json:"id"`
	Sender             string    `json:"sender"`
	Recipient          string    `json:"recipient"`
	CreatedAt          time.Time `json:"created_at"`
	Task               string    `json:"task"`
	Context            Context   `json:"context"`
	Priority           Priority  `json:"priority"`
	RequiresValidation bool      `json:"requires_validation"`
	Metadata           Metadata  `json:"metadata"`
}

// New creates a root envelope for the given task.
func New(task string, meta Metadata) *Envelope {
	return &Envelope{
		ID:                 uuid.New().String(),
		Sender:             OrchestratorSender,
		CreatedAt:          time.Now().UTC(),
		Task:               task,
		Context:            Context{},
		Priority:           PriorityMedium,
		RequiresValidation: true,
		Metadata:           meta,
	}
}

// Derive creates the per-hop envelope addressed to recipient.
//
// The derived envelope gets a fresh id, keeps task, priority, validation flag
// and metadata, and carries ctx (or a copy of the current context when ctx is nil).
func (e *Envelope) Derive(recipient string, ctx Context) *Envelope {
	if ctx == nil {
		ctx = e.Context.Clone()
	}
	return &Envelope{
		ID:                 uuid.New().String(),
		Sender:             OrchestratorSender,
		Recipient:          recipient,
		CreatedAt:          time.Now().UTC(),
		Task:               e.Task,
		Context:            ctx,
		Priority:           e.Priority,
		RequiresValidation: e.RequiresValidation,
		Metadata:           e.Metadata,
	}
}

func deepCopyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyAnyMap(val)
	case Context:
		return Context(deepCopyAnyMap(val))
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = deepCopyValue(item)
		}
		return result
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
