package grpc

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/kernel"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/observability"
)

// UserIDHeader is the metadata key consulted when a request carries no user_id.
const UserIDHeader = "x-user-id"

// AnonymousUser is the rate limit key for requests without a user.
const AnonymousUser = "anonymous"

// =============================================================================
// LOGGING INTERCEPTOR
// =============================================================================

// LoggingInterceptor logs the start, duration and result of each call.
func LoggingInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		logger.Debug("grpc_request_started", "method", info.FullMethod)

		resp, err := handler(ctx, req)

		duration := time.Since(start)
		if err != nil {
			st, _ := status.FromError(err)
			logger.Error("grpc_request_failed",
				"method", info.FullMethod,
				"duration_ms", duration.Milliseconds(),
				"code", st.Code().String(),
				"error", st.Message(),
			)
		} else {
			logger.Debug("grpc_request_completed",
				"method", info.FullMethod,
				"duration_ms", duration.Milliseconds(),
			)
		}
		return resp, err
	}
}

// =============================================================================
// RECOVERY INTERCEPTOR
// =============================================================================

// RecoveryHandler converts a recovered panic value into an error.
type RecoveryHandler func(p any) error

// DefaultRecoveryHandler returns an Internal error with the panic value.
func DefaultRecoveryHandler(p any) error {
	return status.Errorf(codes.Internal, "panic recovered: %v", p)
}

// RecoveryInterceptor turns handler panics into errors. A nil handler uses
// DefaultRecoveryHandler.
func RecoveryInterceptor(logger logging.Logger, handler RecoveryHandler) grpc.UnaryServerInterceptor {
	if handler == nil {
		handler = DefaultRecoveryHandler
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("grpc_panic_recovered",
					"method", info.FullMethod,
					"panic", fmt.Sprintf("%v", p),
					"stack", string(debug.Stack()),
				)
				resp, err = nil, handler(p)
			}
		}()

		return next(ctx, req)
	}
}

// =============================================================================
// METRICS INTERCEPTOR
// =============================================================================

// MetricsInterceptor records the count and duration of each call by status code.
func MetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		observability.RecordGRPCRequest(info.FullMethod, codeLabel(err), int(time.Since(start).Milliseconds()))
		return resp, err
	}
}

// =============================================================================
// RATE LIMIT INTERCEPTOR
// =============================================================================

// UserKey returns the rate limit key for a call: the request's user_id
// field, else the x-user-id header, else AnonymousUser.
func UserKey(ctx context.Context, req any) string {
	if s, ok := req.(*structpb.Struct); ok {
		if id := s.GetFields()["user_id"].GetStringValue(); id != "" {
			return id
		}
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(UserIDHeader); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return AnonymousUser
}

// RateLimitInterceptor rejects calls over the per-user limit with
// ResourceExhausted and a retry-after header. Only the listed methods are
// limited; with none listed every method is.
func RateLimitInterceptor(limiter *kernel.RateLimiter, logger logging.Logger, methods ...string) grpc.UnaryServerInterceptor {
	limited := make(map[string]bool, len(methods))
	for _, m := range methods {
		limited[m] = true
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if len(limited) > 0 && !limited[info.FullMethod] {
			return handler(ctx, req)
		}

		key := UserKey(ctx, req)
		result := limiter.Check(key)
		if !result.Allowed {
			logger.Warn("grpc_rate_limited",
				"method", info.FullMethod,
				"user_id", key,
				"retry_after_ms", result.RetryAfter.Milliseconds(),
			)
			_ = grpc.SetHeader(ctx, metadata.Pairs("retry-after", retryAfterSeconds(result.RetryAfter)))
			return nil, ResourceExhausted(key, result.RetryAfter)
		}
		return handler(ctx, req)
	}
}

// =============================================================================
// SERVER OPTIONS
// =============================================================================

// ServerOptions returns the standard options: an OpenTelemetry stats handler
// and the recovery, logging, metrics and (when limiter is non-nil) rate limit
// interceptors, outermost first. Rate limiting applies to Submit only.
func ServerOptions(logger logging.Logger, limiter *kernel.RateLimiter) []grpc.ServerOption {
	logger = logging.OrNop(logger)
	interceptors := []grpc.UnaryServerInterceptor{
		RecoveryInterceptor(logger, nil),
		LoggingInterceptor(logger),
		MetricsInterceptor(),
	}
	if limiter != nil {
		interceptors = append(interceptors, RateLimitInterceptor(limiter, logger, SubmitMethod))
	}

	return []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	}
}
