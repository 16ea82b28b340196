package commbus

import (
	"context"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/envelope"
)

type requestIDKey struct{}

// ContextWithRequestID tags ctx with the id of the request being orchestrated.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id set by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// AgentEventContext publishes agent lifecycle events on a bus, tagged with
// the request id carried by the context. It satisfies agents.EventContext.
type AgentEventContext struct {
	bus CommBus
}

// NewAgentEventContext creates an AgentEventContext publishing to bus.
func NewAgentEventContext(bus CommBus) *AgentEventContext {
	return &AgentEventContext{bus: bus}
}

// EmitAgentStarted publishes AgentStarted.
func (e *AgentEventContext) EmitAgentStarted(ctx context.Context, agentName string, env *envelope.Envelope) error {
	event := &AgentStarted{RequestID: RequestIDFromContext(ctx), AgentName: agentName}
	if env != nil {
		event.EnvelopeID = env.ID
	}
	return e.bus.Publish(ctx, event)
}

// EmitAgentCompleted publishes AgentCompleted.
func (e *AgentEventContext) EmitAgentCompleted(ctx context.Context, agentName string, resp *envelope.Response) error {
	event := &AgentCompleted{RequestID: RequestIDFromContext(ctx), AgentName: agentName}
	if resp != nil {
		event.ResponseID = resp.ID
		event.Status = string(resp.Status)
		event.DurationMS = int(resp.ProcessingTimeMS())
		event.Error = resp.Error
	}
	return e.bus.Publish(ctx, event)
}
