// Package kernel provides the Orchestrator, the single entry point that runs
// a request through classification, planning, dispatch, validation and
// composition.
//
// The Orchestrator:
//   - owns the agent registry (injected, never global)
//   - tracks in-flight requests so they can be cancelled by id
//   - publishes lifecycle events on the bus
//   - converts every unexpected failure into an apologetic Result
package kernel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/GharaibehR/Chief-of-Staff/commbus"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/agents"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/compose"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/config"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/envelope"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/intent"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/observability"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/runtime"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/validation"
)

var tracer = otel.Tracer("chief-of-staff/kernel")

// =============================================================================
// Request
// =============================================================================

// Request is one user request.
type Request struct {
	// RequestID is generated when empty.
	RequestID      string `json:"request_id,omitempty"`
	Text           string `json:"text"`
	UserID         string `json:"user_id"`
	SessionID      string `json:"session_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Classification is the intent and plan chosen for a text.
type Classification struct {
	Intent intent.Intent `json:"intent"`
	Plan   config.Plan   `json:"plan"`
}

// =============================================================================
// Orchestrator
// =============================================================================

// Deps are the collaborators of an Orchestrator. Nil fields get defaults.
type Deps struct {
	Registry   *agents.Registry
	Classifier *intent.Classifier
	Planner    *config.Planner
	Dispatcher *runtime.Dispatcher
	Gate       *validation.QualityGate
	Composer   *compose.Composer
	Bus        commbus.CommBus
	Logger     logging.Logger

	// AgentTimeout and MaxParallel configure the default Dispatcher.
	AgentTimeout time.Duration
	MaxParallel  int
}

type inflightRequest struct {
	cancel    context.CancelCauseFunc
	userID    string
	startedAt time.Time
}

// Orchestrator runs requests end to end.
type Orchestrator struct {
	registry   *agents.Registry
	classifier *intent.Classifier
	planner    *config.Planner
	dispatcher *runtime.Dispatcher
	gate       *validation.QualityGate
	composer   *compose.Composer
	bus        commbus.CommBus
	logger     logging.Logger

	inflight map[string]*inflightRequest
	mu       sync.Mutex
}

// NewOrchestrator creates an Orchestrator from deps.
func NewOrchestrator(deps Deps) *Orchestrator {
	logger := logging.OrNop(deps.Logger)

	o := &Orchestrator{
		registry:   deps.Registry,
		classifier: deps.Classifier,
		planner:    deps.Planner,
		dispatcher: deps.Dispatcher,
		gate:       deps.Gate,
		composer:   deps.Composer,
		bus:        deps.Bus,
		logger:     logger,
		inflight:   make(map[string]*inflightRequest),
	}

	if o.registry == nil {
		o.registry = agents.NewRegistry()
	}
	if o.classifier == nil {
		o.classifier = intent.NewClassifier()
	}
	if o.planner == nil {
		o.planner = config.NewPlanner(nil)
	}
	if o.gate == nil {
		o.gate = validation.NewQualityGate(nil, logger)
	}
	if o.composer == nil {
		o.composer = compose.NewComposer(nil)
	}
	if o.dispatcher == nil {
		invoker := agents.NewInvoker(logger, deps.AgentTimeout)
		if o.bus != nil {
			invoker.SetEventContext(commbus.NewAgentEventContext(o.bus))
		}
		o.dispatcher = runtime.NewDispatcher(o.registry, invoker, logger, deps.MaxParallel)
	}
	if o.bus != nil {
		o.gate.OnFailure(o.publishValidationFailure)
	}
	return o
}

// NewFromConfig builds an Orchestrator from core configuration. The routing
// table is loaded from cfg.RoutingFile when set.
func NewFromConfig(cfg *config.CoreConfig, registry *agents.Registry, bus commbus.CommBus, logger logging.Logger) (*Orchestrator, error) {
	if cfg == nil {
		cfg = config.DefaultCoreConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid core config: %w", err)
	}

	table := config.DefaultRoutingTable()
	if cfg.RoutingFile != "" {
		loaded, err := config.LoadRoutingTable(cfg.RoutingFile)
		if err != nil {
			return nil, err
		}
		table = loaded
	}

	return NewOrchestrator(Deps{
		Registry:     registry,
		Planner:      config.NewPlanner(table),
		Gate:         validation.NewQualityGate(cfg.PlatformLimits, logger),
		Bus:          bus,
		Logger:       logger,
		AgentTimeout: cfg.AgentTimeout,
		MaxParallel:  cfg.MaxParallelAgents,
	}), nil
}

// Registry returns the agent registry.
func (o *Orchestrator) Registry() *agents.Registry {
	return o.registry
}

// RegisterAgent registers a capability agent. Registering an existing name
// replaces the previous agent.
func (o *Orchestrator) RegisterAgent(name string, agent agents.CapabilityAgent) error {
	replaced, err := o.registry.Register(name, agent)
	if err != nil {
		return err
	}
	if replaced {
		o.logger.Warn("agent_replaced", "agent", name)
	} else {
		o.logger.Info("agent_registered", "agent", name)
	}
	return nil
}

// Classify returns the intent and plan for text without running any agent.
func (o *Orchestrator) Classify(text string) Classification {
	in := o.classifier.Classify(text)
	return Classification{Intent: in, Plan: o.planner.Plan(in)}
}

// Submit runs text on behalf of userID.
func (o *Orchestrator) Submit(ctx context.Context, text, userID string) *compose.Result {
	return o.SubmitRequest(ctx, Request{Text: text, UserID: userID})
}

// SubmitRequest runs req end to end. It never returns nil and never panics.
func (o *Orchestrator) SubmitRequest(ctx context.Context, req Request) *compose.Result {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if err := o.track(req, cancel, start); err != nil {
		o.logger.Warn("request_rejected", "request_id", req.RequestID, "user_id", req.UserID, "error", err.Error())
		return compose.Failed("", err)
	}
	defer o.untrack(req.RequestID)

	ctx = commbus.ContextWithRequestID(ctx, req.RequestID)
	logger := o.logger.Bind("request_id", req.RequestID, "user_id", req.UserID)

	ctx, span := tracer.Start(ctx, "orchestrator.submit",
		trace.WithAttributes(
			attribute.String("chief.request.id", req.RequestID),
			attribute.String("chief.user.id", req.UserID),
		),
	)
	defer span.End()

	logger.Info("request_started", "text_length", len(req.Text))
	o.publish(ctx, &commbus.RequestStarted{
		RequestID:      req.RequestID,
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		ConversationID: req.ConversationID,
		Text:           req.Text,
	})

	var detected intent.Intent
	result, err := SafeExecuteWithResult(logger, "submit", func() (*compose.Result, error) {
		return o.run(ctx, logger, req, &detected)
	})
	if err == nil && result == nil {
		err = fmt.Errorf("no result produced")
	}
	if err != nil {
		logger.Error("request_failed", "intent", detected.Name, "error", err.Error())
		span.RecordError(err)
		result = compose.Failed(detected.Name, err)
	}

	durationMS := int(time.Since(start).Milliseconds())
	status := "success"
	if !result.Success {
		status = "error"
		span.SetStatus(codes.Error, result.Message)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.String("chief.intent", detected.Name),
		attribute.Bool("chief.success", result.Success),
	)
	observability.RecordRequest(detected.Name, status, durationMS)

	logger.Info("request_completed",
		"intent", detected.Name,
		"success", result.Success,
		"duration_ms", durationMS,
	)
	o.publish(ctx, &commbus.RequestCompleted{
		RequestID:  req.RequestID,
		Intent:     detected.Name,
		Success:    result.Success,
		Message:    result.Message,
		DurationMS: durationMS,
		Error:      result.Error,
	})
	return result
}

func (o *Orchestrator) run(ctx context.Context, logger logging.Logger, req Request, detected *intent.Intent) (*compose.Result, error) {
	in := o.classifier.Classify(req.Text)
	*detected = in
	observability.RecordClassification(in.Name, string(in.Complexity))

	plan := o.planner.Plan(in)
	logger.Info("intent_classified",
		"intent", in.Name,
		"confidence", in.Confidence,
		"platforms", in.PlatformNames(),
		"complexity", string(in.Complexity),
		"agents", plan.Agents,
		"parallel", plan.Parallel,
	)
	o.publish(ctx, classifiedEvent(req.RequestID, in, plan))

	env := envelope.New(req.Text, envelope.Metadata{
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		ConversationID: req.ConversationID,
	})
	env.Priority = PriorityFor(in.Complexity)
	env.Context[envelope.IntentKey] = in.Name
	env.Context[envelope.ConfidenceKey] = in.Confidence
	env.Context[envelope.PlatformsKey] = in.PlatformNames()
	env.Context[envelope.ComplexityKey] = string(in.Complexity)
	env.Context[envelope.EntitiesKey] = map[string]any{
		"dates":  append([]string{}, in.Entities.Dates...),
		"times":  append([]string{}, in.Entities.Times...),
		"people": append([]string{}, in.Entities.People...),
	}

	responses := o.dispatcher.Execute(ctx, env, plan)
	if ctx.Err() != nil {
		logger.Warn("request_interrupted", "cause", context.Cause(ctx).Error())
	}

	responses = o.gate.Apply(ctx, responses)
	return o.composer.Compose(in, responses), nil
}

// PriorityFor maps request complexity to envelope priority.
func PriorityFor(c intent.Complexity) envelope.Priority {
	switch c {
	case intent.ComplexityHigh:
		return envelope.PriorityHigh
	case intent.ComplexityLow:
		return envelope.PriorityLow
	default:
		return envelope.PriorityMedium
	}
}

// =============================================================================
// In-flight requests
// =============================================================================

// ErrRequestNotFound is returned when cancelling an unknown request id.
var ErrRequestNotFound = errors.New("request not found")

// ErrRequestInFlight is returned when a request id is submitted while a
// request with the same id is still running.
var ErrRequestInFlight = errors.New("request already in flight")

// Cancel cancels an in-flight request. Running agents see their context
// cancelled and report an error Response.
func (o *Orchestrator) Cancel(requestID, reason string) error {
	o.mu.Lock()
	req, ok := o.inflight[requestID]
	o.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	if reason == "" {
		reason = "cancelled"
	}
	req.cancel(fmt.Errorf("request %s %s", requestID, reason))
	o.logger.Info("request_cancel_requested", "request_id", requestID, "user_id", req.userID, "reason", reason)
	return nil
}

// InFlight returns the ids of the requests currently running.
func (o *Orchestrator) InFlight() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]string, 0, len(o.inflight))
	for id := range o.inflight {
		ids = append(ids, id)
	}
	return ids
}

func (o *Orchestrator) track(req Request, cancel context.CancelCauseFunc, start time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.inflight[req.RequestID]; exists {
		return fmt.Errorf("%w: %s", ErrRequestInFlight, req.RequestID)
	}
	o.inflight[req.RequestID] = &inflightRequest{cancel: cancel, userID: req.UserID, startedAt: start}
	return nil
}

func (o *Orchestrator) untrack(requestID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.inflight, requestID)
}

// =============================================================================
// Bus wiring
// =============================================================================

// RegisterBusHandlers answers ListAgents and ClassifyText queries and
// CancelRequest commands on the orchestrator's bus.
func (o *Orchestrator) RegisterBusHandlers() error {
	if o.bus == nil {
		return fmt.Errorf("orchestrator has no bus")
	}

	handlers := map[string]commbus.HandlerFunc{
		"ListAgents": func(ctx context.Context, msg commbus.Message) (any, error) {
			return o.registry.Names(), nil
		},
		"ClassifyText": func(ctx context.Context, msg commbus.Message) (any, error) {
			q, ok := msg.(*commbus.ClassifyText)
			if !ok {
				return nil, fmt.Errorf("unexpected message %T", msg)
			}
			c := o.Classify(q.Text)
			return classifiedEvent("", c.Intent, c.Plan), nil
		},
		"CancelRequest": func(ctx context.Context, msg commbus.Message) (any, error) {
			cmd, ok := msg.(*commbus.CancelRequest)
			if !ok {
				return nil, fmt.Errorf("unexpected message %T", msg)
			}
			return nil, o.Cancel(cmd.RequestID, cmd.Reason)
		},
	}

	for _, name := range []string{"ListAgents", "ClassifyText", "CancelRequest"} {
		if err := o.bus.RegisterHandler(name, handlers[name]); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, event commbus.Message) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(ctx, event); err != nil {
		o.logger.Warn("event_publish_failed", "type", commbus.GetMessageType(event), "error", err.Error())
	}
}

func (o *Orchestrator) publishValidationFailure(ctx context.Context, resp *envelope.Response, result validation.Result) {
	issues := make([]string, len(result.Issues))
	for i, issue := range result.Issues {
		issues[i] = issue.Message
	}
	o.publish(ctx, &commbus.ValidationFailed{
		RequestID: commbus.RequestIDFromContext(ctx),
		AgentName: resp.Agent,
		Issues:    issues,
	})
}

func classifiedEvent(requestID string, in intent.Intent, plan config.Plan) *commbus.IntentClassified {
	return &commbus.IntentClassified{
		RequestID:  requestID,
		Intent:     in.Name,
		Confidence: in.Confidence,
		Platforms:  in.PlatformNames(),
		Complexity: string(in.Complexity),
		Agents:     append([]string{}, plan.Agents...),
		Parallel:   plan.Parallel,
	}
}
