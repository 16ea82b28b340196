// Package agents provides the capability-agent contract, the safe invocation
// wrapper used by the dispatcher, and the agent registry.
package agents

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/envelope"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/observability"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CapabilityAgent is implemented by every capability (calendar, mail, social, task, content).
//
// Process must not panic or return nil; failures are reported as a Response
// with status error. Invoke guards against both anyway.
type CapabilityAgent interface {
	Process(ctx context.Context, env *envelope.Envelope) *envelope.Response
}

// AgentFunc adapts a plain function to CapabilityAgent.
type AgentFunc func(ctx context.Context, env *envelope.Envelope) *envelope.Response

// Process implements CapabilityAgent.
func (f AgentFunc) Process(ctx context.Context, env *envelope.Envelope) *envelope.Response {
	return f(ctx, env)
}

// EventContext receives agent lifecycle notifications.
type EventContext interface {
	EmitAgentStarted(ctx context.Context, agentName string, env *envelope.Envelope) error
	EmitAgentCompleted(ctx context.Context, agentName string, resp *envelope.Response) error
}

var tracer = otel.Tracer("chief-of-staff/agents")

// Invoker runs a single capability agent with panic recovery, an optional
// timeout, tracing, metrics and lifecycle events.
type Invoker struct {
	Logger   logging.Logger
	EventCtx EventContext
	// Timeout bounds one agent call. Zero means no bound beyond the caller's context.
	Timeout time.Duration
}

// NewInvoker creates an Invoker.
func NewInvoker(logger logging.Logger, timeout time.Duration) *Invoker {
	return &Invoker{Logger: logging.OrNop(logger), Timeout: timeout}
}

// SetEventContext sets the event context used for lifecycle notifications.
func (i *Invoker) SetEventContext(ec EventContext) {
	i.EventCtx = ec
}

// Invoke calls agent for env and always returns a non-nil Response stamped
// with the capability name and the measured processing time.
func (i *Invoker) Invoke(ctx context.Context, name string, agent CapabilityAgent, env *envelope.Envelope) *envelope.Response {
	logger := logging.OrNop(i.Logger).Bind("agent", name, "envelope_id", env.ID)

	ctx, span := tracer.Start(ctx, "agent.process",
		trace.WithAttributes(
			attribute.String("chief.agent.name", name),
			attribute.String("chief.envelope.id", env.ID),
			attribute.String("chief.user.id", env.Metadata.UserID),
		),
	)
	defer span.End()

	if i.EventCtx != nil {
		if err := i.EventCtx.EmitAgentStarted(ctx, name, env); err != nil {
			logger.Warn("agent_started_event_failed", "error", err.Error())
		}
	}
	logger.Debug("agent_started")

	start := time.Now()
	resp := i.call(ctx, name, agent, env)
	resp.ProcessingTime = time.Since(start)
	resp.Agent = name
	if resp.ID == "" || resp.ID == env.ID {
		resp.ID = uuid.New().String()
	}

	durationMS := int(resp.ProcessingTime.Milliseconds())
	observability.RecordAgentExecution(name, string(resp.Status), durationMS)
	span.SetAttributes(
		attribute.String("chief.agent.status", string(resp.Status)),
		attribute.Int("duration_ms", durationMS),
	)

	if resp.IsError() {
		span.SetStatus(codes.Error, resp.Error)
		logger.Warn("agent_error", "error", resp.Error, "duration_ms", durationMS)
	} else {
		span.SetStatus(codes.Ok, string(resp.Status))
		logger.Info("agent_completed", "status", string(resp.Status), "duration_ms", durationMS)
	}

	if i.EventCtx != nil {
		if err := i.EventCtx.EmitAgentCompleted(ctx, name, resp); err != nil {
			logger.Warn("agent_completed_event_failed", "error", err.Error())
		}
	}
	return resp
}

func (i *Invoker) call(ctx context.Context, name string, agent CapabilityAgent, env *envelope.Envelope) *envelope.Response {
	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	done := make(chan *envelope.Response, 1)
	go func() {
		done <- i.safeProcess(ctx, name, agent, env)
	}()

	select {
	case resp := <-done:
		// An agent that gave up because of the deadline reports it the same way
		// as one that never returned.
		if resp.IsError() && ctx.Err() != nil {
			return i.interrupted(ctx, name)
		}
		return resp
	case <-ctx.Done():
		return i.interrupted(ctx, name)
	}
}

func (i *Invoker) interrupted(ctx context.Context, name string) *envelope.Response {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && i.Timeout > 0 {
		return envelope.Failure(name, "agent %s timed out after %s", name, i.Timeout)
	}
	return envelope.Failure(name, "agent %s cancelled: %v", name, context.Cause(ctx))
}

func (i *Invoker) safeProcess(ctx context.Context, name string, agent CapabilityAgent, env *envelope.Envelope) (resp *envelope.Response) {
	defer func() {
		if r := recover(); r != nil {
			logging.OrNop(i.Logger).Error("agent_panic_recovered",
				"agent", name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			resp = envelope.Failure(name, "agent %s failed: %v", name, r)
		}
	}()

	resp = agent.Process(ctx, env)
	if resp == nil {
		resp = envelope.Failure(name, "agent %s returned no response", name)
	}
	return resp
}
