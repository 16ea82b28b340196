// Package envelope provides the request envelope and agent response contracts
// exchanged between the orchestrator and capability agents.
package envelope

// Priority is the urgency attached to an envelope.
type Priority string

const (
	// PriorityLow is used for simple requests.
	PriorityLow Priority = "low"
	// PriorityMedium is the default priority.
	PriorityMedium Priority = "medium"
	// PriorityHigh is used for complex multi-platform requests.
	PriorityHigh Priority = "high"
	// PriorityUrgent is reserved for caller-flagged requests.
	PriorityUrgent Priority = "urgent"
)

// IsValid reports whether p is one of the known priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status is the outcome reported by a capability agent.
type Status string

const (
	// StatusSuccess indicates the agent completed the task.
	StatusSuccess Status = "success"
	// StatusError indicates the agent failed or its output was rejected.
	StatusError Status = "error"
	// StatusPending indicates the agent accepted work that has not finished.
	StatusPending Status = "pending"
	// StatusRequiresInput indicates the agent needs more information from the user.
	StatusRequiresInput Status = "requires_input"
)

// IsTerminal reports whether the status ends the agent's participation.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}
