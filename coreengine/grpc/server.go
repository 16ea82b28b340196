// Package grpc hosts the orchestrator over gRPC.
//
// The service is registered from a hand-written ServiceDesc whose messages
// are google.protobuf.Struct values carrying the JSON form of the kernel
// types, so clients in any language can call it with the well-known types.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/kernel"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
)

// Server implements OrchestratorServer on top of a kernel.Orchestrator.
type Server struct {
	orch   *kernel.Orchestrator
	logger logging.Logger
}

// NewServer creates a Server.
func NewServer(orch *kernel.Orchestrator, logger logging.Logger) *Server {
	return &Server{
		orch:   orch,
		logger: logging.OrNop(logger),
	}
}

// Submit runs one request. Domain failures are reported inside the Result
// with an OK status; only malformed requests return an error status.
func (s *Server) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req kernel.Request
	if err := FromStruct(in, &req); err != nil {
		return nil, Malformed("request", err)
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := validateRequired(req.Text, "text"); err != nil {
		return nil, err
	}

	result := s.orch.SubmitRequest(ctx, req)

	out, err := ToStruct(result)
	if err != nil {
		return nil, Internal("encoding result", err)
	}
	return out, nil
}

// Classify reports the intent and plan for {"text"} without running agents.
func (s *Server) Classify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	text := strings.TrimSpace(in.GetFields()["text"].GetStringValue())
	if err := validateRequired(text, "text"); err != nil {
		return nil, err
	}

	out, err := ToStruct(s.orch.Classify(text))
	if err != nil {
		return nil, Internal("encoding classification", err)
	}
	return out, nil
}

// ListAgents returns the registered capability names.
func (s *Server) ListAgents(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	names := s.orch.Registry().Names()
	agents := make([]any, len(names))
	for i, n := range names {
		agents[i] = n
	}
	out, err := structpb.NewStruct(map[string]any{"agents": agents})
	if err != nil {
		return nil, Internal("encoding agents", err)
	}
	return out, nil
}

// Cancel cancels an in-flight request by id.
func (s *Server) Cancel(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	id := fields["request_id"].GetStringValue()
	if err := validateRequired(id, "request_id"); err != nil {
		return nil, err
	}

	if err := s.orch.Cancel(id, fields["reason"].GetStringValue()); err != nil {
		if errors.Is(err, kernel.ErrRequestNotFound) {
			return nil, NotFound("request", id)
		}
		return nil, Internal("cancel", err)
	}

	return structpb.NewStruct(map[string]any{"request_id": id, "cancelled": true})
}

// =============================================================================
// GRACEFUL SERVER
// =============================================================================

// GracefulServer wraps a grpc.Server serving one Server with graceful
// shutdown support.
type GracefulServer struct {
	grpcServer *grpc.Server
	logger     logging.Logger
	address    string

	shutdownMu sync.Mutex
	isShutdown bool
}

// NewGracefulServer creates a GracefulServer. Without opts the server uses
// ServerOptions with no rate limiting.
func NewGracefulServer(srv *Server, address string, opts ...grpc.ServerOption) *GracefulServer {
	if len(opts) == 0 {
		opts = ServerOptions(srv.logger, nil)
	}

	grpcServer := grpc.NewServer(opts...)
	RegisterOrchestratorServer(grpcServer, srv)

	return &GracefulServer{
		grpcServer: grpcServer,
		logger:     srv.logger,
		address:    address,
	}
}

// Start listens on the configured address and blocks until ctx is cancelled
// or the server fails. Cancellation triggers a graceful stop.
func (s *GracefulServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled or the server fails.
func (s *GracefulServer) Serve(ctx context.Context, lis net.Listener) error {
	s.logger.Info("grpc_server_started", "address", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("grpc_graceful_shutdown_initiated", "reason", context.Cause(ctx).Error())
		s.GracefulStop()
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server error: %w", err)
		}
		return nil
	}
}

// GracefulStop stops accepting connections and waits for in-flight calls.
func (s *GracefulServer) GracefulStop() {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()

	if s.isShutdown {
		return
	}
	s.isShutdown = true

	s.grpcServer.GracefulStop()
	s.logger.Info("grpc_graceful_stop_completed")
}

// ShutdownWithTimeout stops gracefully, forcing an immediate stop after timeout.
func (s *GracefulServer) ShutdownWithTimeout(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn("grpc_graceful_shutdown_timeout", "timeout_ms", timeout.Milliseconds())
		s.grpcServer.Stop()
	}
}

// Address returns the configured listen address.
func (s *GracefulServer) Address() string {
	return s.address
}
