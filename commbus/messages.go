package commbus

// =============================================================================
// MESSAGE CATEGORIES
// =============================================================================

// MessageCategory represents message routing categories.
type MessageCategory string

const (
	// MessageCategoryEvent represents fire-and-forget, fan-out to all subscribers.
	MessageCategoryEvent MessageCategory = "event"
	// MessageCategoryQuery represents request-response, single handler.
	MessageCategoryQuery MessageCategory = "query"
	// MessageCategoryCommand represents fire-and-forget, single handler.
	MessageCategoryCommand MessageCategory = "command"
)

// =============================================================================
// REQUEST LIFECYCLE EVENTS
// =============================================================================

// RequestStarted is emitted when the orchestrator accepts a request.
type RequestStarted struct {
	RequestID      string `json:"request_id"`
	UserID         string `json:"user_id"`
	SessionID      string `json:"session_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Text           string `json:"text"`
}

// Category implements the Message interface.
func (m *RequestStarted) Category() string { return string(MessageCategoryEvent) }

// IntentClassified is emitted once the request text has been classified and planned.
type IntentClassified struct {
	RequestID  string   `json:"request_id"`
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Platforms  []string `json:"platforms"`
	Complexity string   `json:"complexity"`
	Agents     []string `json:"agents"`
	Parallel   bool     `json:"parallel"`
}

// Category implements the Message interface.
func (m *IntentClassified) Category() string { return string(MessageCategoryEvent) }

// RequestCompleted is emitted when the composed result is ready.
type RequestCompleted struct {
	RequestID  string `json:"request_id"`
	Intent     string `json:"intent"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	DurationMS int    `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Category implements the Message interface.
func (m *RequestCompleted) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// AGENT LIFECYCLE EVENTS
// =============================================================================

// AgentStarted is emitted when a capability agent begins processing.
type AgentStarted struct {
	RequestID  string `json:"request_id"`
	AgentName  string `json:"agent_name"`
	EnvelopeID string `json:"envelope_id"`
}

// Category implements the Message interface.
func (m *AgentStarted) Category() string { return string(MessageCategoryEvent) }

// AgentCompleted is emitted when a capability agent returns.
type AgentCompleted struct {
	RequestID  string `json:"request_id"`
	AgentName  string `json:"agent_name"`
	ResponseID string `json:"response_id"`
	Status     string `json:"status"`
	DurationMS int    `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Category implements the Message interface.
func (m *AgentCompleted) Category() string { return string(MessageCategoryEvent) }

// ValidationFailed is emitted when the quality gate rejects a response.
type ValidationFailed struct {
	RequestID string   `json:"request_id"`
	AgentName string   `json:"agent_name"`
	Issues    []string `json:"issues"`
}

// Category implements the Message interface.
func (m *ValidationFailed) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// QUERIES
// =============================================================================

// ListAgents asks for the names of the registered capability agents.
// Response: []string.
type ListAgents struct{}

// Category implements the Message interface.
func (m *ListAgents) Category() string { return string(MessageCategoryQuery) }

// IsQuery implements the Query interface.
func (m *ListAgents) IsQuery() {}

// ClassifyText asks for the intent and plan of a text without executing it.
// Response: *IntentClassified.
type ClassifyText struct {
	Text string `json:"text"`
}

// Category implements the Message interface.
func (m *ClassifyText) Category() string { return string(MessageCategoryQuery) }

// IsQuery implements the Query interface.
func (m *ClassifyText) IsQuery() {}

// =============================================================================
// COMMANDS
// =============================================================================

// CancelRequest cancels an in-flight request by id.
type CancelRequest struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason,omitempty"`
}

// Category implements the Message interface.
func (m *CancelRequest) Category() string { return string(MessageCategoryCommand) }

// =============================================================================
// MESSAGE TYPE LOOKUP
// =============================================================================

// GetMessageType returns the routing type of msg.
func GetMessageType(msg Message) string {
	if typed, ok := msg.(TypedMessage); ok {
		return typed.MessageType()
	}

	switch msg.(type) {
	case *RequestStarted:
		return "RequestStarted"
	case *IntentClassified:
		return "IntentClassified"
	case *RequestCompleted:
		return "RequestCompleted"
	case *AgentStarted:
		return "AgentStarted"
	case *AgentCompleted:
		return "AgentCompleted"
	case *ValidationFailed:
		return "ValidationFailed"
	case *ListAgents:
		return "ListAgents"
	case *ClassifyText:
		return "ClassifyText"
	case *CancelRequest:
		return "CancelRequest"
	default:
		return "Unknown"
	}
}
