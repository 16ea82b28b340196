package comms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/compose"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/config"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/kernel"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/observability"
)

// CancelSuffix is appended to the submit subject for cancellation requests.
const CancelSuffix = ".cancel"

// InvalidRequestMessage is the Result message for undecodable submissions.
const InvalidRequestMessage = "invalid request"

// CancelRequest is the payload of a cancellation request.
type CancelRequest struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason,omitempty"`
}

// CancelReply answers a CancelRequest.
type CancelReply struct {
	RequestID string `json:"request_id"`
	Cancelled bool   `json:"cancelled"`
	Error     string `json:"error,omitempty"`
}

// Bridge answers NATS requests with the orchestrator.
//
// Submissions on Subject carry a JSON kernel.Request and are answered with
// a JSON compose.Result. Each submission runs in its own goroutine.
// Submissions join QueueGroup so several processes can share the load.
// Cancellations are delivered to every process and only the one running
// the request replies.
type Bridge struct {
	nc      *nats.Conn
	orch    *kernel.Orchestrator
	cfg     config.NATSConfig
	logger  logging.Logger
	baseCtx context.Context
	stop    context.CancelFunc
	subs    []*nats.Subscription

	mu      sync.Mutex
	stopped bool
	running sync.WaitGroup
}

// NewBridge creates a Bridge. It does not subscribe until Start.
func NewBridge(nc *nats.Conn, orch *kernel.Orchestrator, cfg config.NATSConfig, logger logging.Logger) *Bridge {
	if cfg.Subject == "" {
		cfg.Subject = config.DefaultCoreConfig().NATS.Subject
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		nc:      nc,
		orch:    orch,
		cfg:     cfg,
		logger:  logging.OrNop(logger).Bind("component", "nats_bridge"),
		baseCtx: ctx,
		stop:    cancel,
	}
}

// Start subscribes to the submit and cancel subjects.
func (b *Bridge) Start() error {
	submit, err := b.nc.QueueSubscribe(b.cfg.Subject, b.cfg.QueueGroup, b.dispatchSubmit)
	if err != nil {
		b.Stop()
		return fmt.Errorf("subscribing to %s: %w", b.cfg.Subject, err)
	}
	b.subs = append(b.subs, submit)
	b.logger.Info("nats_subscribed", "subject", b.cfg.Subject, "queue", b.cfg.QueueGroup)

	cancelSubject := b.cfg.Subject + CancelSuffix
	cancelSub, err := b.nc.Subscribe(cancelSubject, b.handleCancel)
	if err != nil {
		b.Stop()
		return fmt.Errorf("subscribing to %s: %w", cancelSubject, err)
	}
	b.subs = append(b.subs, cancelSub)
	b.logger.Info("nats_subscribed", "subject", cancelSubject)

	return b.nc.Flush()
}

// Stop unsubscribes, cancels submissions still running and waits for them
// to reply. Submissions delivered after Stop are dropped.
func (b *Bridge) Stop() {
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			b.logger.Warn("nats_unsubscribe_failed", "subject", sub.Subject, "error", err.Error())
		}
	}
	b.subs = nil

	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()

	b.stop()
	b.running.Wait()
}

func (b *Bridge) dispatchSubmit(msg *nats.Msg) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		b.logger.Warn("nats_request_dropped", "subject", msg.Subject, "reason", "bridge stopped")
		return
	}
	b.running.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.running.Done()
		b.handleSubmit(msg)
	}()
}

func (b *Bridge) handleSubmit(msg *nats.Msg) {
	var req kernel.Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		b.logger.Warn("nats_request_invalid", "subject", msg.Subject, "error", err.Error())
		observability.RecordBridgeRequest(msg.Subject, "invalid")
		b.respond(msg, &compose.Result{Success: false, Message: InvalidRequestMessage, Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		observability.RecordBridgeRequest(msg.Subject, "invalid")
		b.respond(msg, &compose.Result{Success: false, Message: InvalidRequestMessage, Error: "text is required"})
		return
	}

	ctx := b.baseCtx
	if b.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.RequestTimeout)
		defer cancel()
	}

	result := b.orch.SubmitRequest(ctx, req)

	status := "success"
	if !result.Success {
		status = "error"
	}
	observability.RecordBridgeRequest(msg.Subject, status)
	b.respond(msg, result)
}

func (b *Bridge) handleCancel(msg *nats.Msg) {
	var req CancelRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.RequestID == "" {
		observability.RecordBridgeRequest(msg.Subject, "invalid")
		b.respond(msg, &CancelReply{Error: "request_id is required"})
		return
	}

	if err := b.orch.Cancel(req.RequestID, req.Reason); err != nil {
		// Another process may own the request; its reply is the one that counts.
		if errors.Is(err, kernel.ErrRequestNotFound) {
			b.logger.Debug("nats_cancel_not_owned", "request_id", req.RequestID)
			return
		}
		observability.RecordBridgeRequest(msg.Subject, "error")
		b.respond(msg, &CancelReply{RequestID: req.RequestID, Error: err.Error()})
		return
	}
	observability.RecordBridgeRequest(msg.Subject, "success")
	b.respond(msg, &CancelReply{RequestID: req.RequestID, Cancelled: true})
}

func (b *Bridge) respond(msg *nats.Msg, v any) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("nats_response_encode_failed", "subject", msg.Subject, "error", err.Error())
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("nats_respond_failed", "subject", msg.Subject, "error", err.Error())
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Submit sends req on subject and waits for the Result.
func Submit(ctx context.Context, nc *nats.Conn, subject string, req kernel.Request) (*compose.Result, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	msg, err := nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", subject, err)
	}
	result := &compose.Result{}
	if err := json.Unmarshal(msg.Data, result); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return result, nil
}

// Cancel asks the bridges on subject to cancel requestID. Only the bridge
// running the request answers, so when none does before the deadline
// (DefaultCancelTimeout unless ctx has one) the reply reports the request as
// not found.
func Cancel(ctx context.Context, nc *nats.Conn, subject, requestID, reason string) (*CancelReply, error) {
	data, err := json.Marshal(CancelRequest{RequestID: requestID, Reason: reason})
	if err != nil {
		return nil, fmt.Errorf("encoding cancel: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCancelTimeout)
		defer cancel()
	}

	msg, err := nc.RequestWithContext(ctx, subject+CancelSuffix, data)
	if errors.Is(err, context.DeadlineExceeded) {
		return &CancelReply{RequestID: requestID, Error: fmt.Sprintf("%s: %s", kernel.ErrRequestNotFound, requestID)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("requesting %s%s: %w", subject, CancelSuffix, err)
	}
	reply := &CancelReply{}
	if err := json.Unmarshal(msg.Data, reply); err != nil {
		return nil, fmt.Errorf("decoding cancel reply: %w", err)
	}
	return reply, nil
}

// DefaultClientTimeout bounds Submit when ctx has no deadline.
const DefaultClientTimeout = 60 * time.Second

// DefaultCancelTimeout is how long Cancel waits for the owning bridge when
// ctx has no deadline.
const DefaultCancelTimeout = 2 * time.Second

func withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultClientTimeout)
}
