// Package runtime executes plans against the agent registry.
//
// Sequential plans chain each successful result into the next agent's context
// under previous_result. Parallel plans fan out over the same initial
// envelope and fan in preserving plan order. Neither mode short-circuits.
package runtime

import (
	"context"
	"time"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/agents"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/config"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/envelope"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/observability"
	"golang.org/x/sync/errgroup"
)

// Dispatcher runs a Plan and collects one Response per planned agent.
type Dispatcher struct {
	Registry *agents.Registry
	Invoker  *agents.Invoker
	Logger   logging.Logger

	// MaxParallel caps concurrently running agents in a parallel plan. Zero means unlimited.
	MaxParallel int
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(registry *agents.Registry, invoker *agents.Invoker, logger logging.Logger, maxParallel int) *Dispatcher {
	if invoker == nil {
		invoker = agents.NewInvoker(logger, 0)
	}
	return &Dispatcher{
		Registry:    registry,
		Invoker:     invoker,
		Logger:      logging.OrNop(logger),
		MaxParallel: maxParallel,
	}
}

// Execute runs plan for env. The returned slice has exactly one Response per
// planned agent, in plan order.
func (d *Dispatcher) Execute(ctx context.Context, env *envelope.Envelope, plan config.Plan) []*envelope.Response {
	logger := d.Logger.Bind("envelope_id", env.ID)
	logger.Debug("dispatch_started",
		"agents", plan.Agents,
		"parallel", plan.Parallel,
	)

	start := time.Now()
	var results []*envelope.Response
	if plan.Parallel {
		results = d.runParallel(ctx, env, plan.Agents)
	} else {
		results = d.runSequential(ctx, env, plan.Agents)
	}

	failed := 0
	for _, r := range results {
		if r.IsError() {
			failed++
		}
	}
	logger.Info("dispatch_completed",
		"agents", len(results),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results
}

// =============================================================================
// EXECUTION MODES
// =============================================================================

func (d *Dispatcher) runSequential(ctx context.Context, env *envelope.Envelope, names []string) []*envelope.Response {
	results := make([]*envelope.Response, 0, len(names))
	running := env.Context.Clone()

	for _, name := range names {
		hop := env.Derive(name, running.Clone())
		resp := d.invoke(ctx, name, hop)
		results = append(results, resp)

		if resp.IsSuccess() {
			running = running.WithPreviousResult(resp.Data)
		}
	}
	return results
}

func (d *Dispatcher) runParallel(ctx context.Context, env *envelope.Envelope, names []string) []*envelope.Response {
	results := make([]*envelope.Response, len(names))

	var g errgroup.Group
	if d.MaxParallel > 0 {
		g.SetLimit(d.MaxParallel)
	}
	for i, name := range names {
		hop := env.Derive(name, nil)
		g.Go(func() error {
			results[i] = d.invoke(ctx, name, hop)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// invoke resolves name in the registry. Unknown names produce a synthetic
// error Response without invoking anything.
func (d *Dispatcher) invoke(ctx context.Context, name string, env *envelope.Envelope) *envelope.Response {
	agent, ok := d.Registry.Get(name)
	if !ok {
		d.Logger.Warn("agent_not_found", "agent", name, "envelope_id", env.ID)
		observability.RecordAgentExecution(name, string(envelope.StatusError), 0)
		return envelope.Failure(name, "agent not found: %s", name)
	}
	return d.Invoker.Invoke(ctx, name, agent, env)
}
