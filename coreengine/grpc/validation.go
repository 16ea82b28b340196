package grpc

import (
	"math"
	"strconv"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// =============================================================================
// ARGUMENT VALIDATION
// =============================================================================

// validateRequired returns InvalidArgument when field is empty.
func validateRequired(field, fieldName string) error {
	if field == "" {
		return InvalidArgument(fieldName)
	}
	return nil
}

// =============================================================================
// ERROR BUILDERS
// =============================================================================
//
// Stable codes and messages for clients.

// InvalidArgument reports a missing required field.
func InvalidArgument(fieldName string) error {
	return status.Errorf(codes.InvalidArgument, "%s is required", fieldName)
}

// Malformed reports a message that could not be decoded.
func Malformed(what string, cause error) error {
	return status.Errorf(codes.InvalidArgument, "malformed %s: %v", what, cause)
}

// NotFound reports an unknown resource.
func NotFound(resourceType, id string) error {
	return status.Errorf(codes.NotFound, "%s not found: %s", resourceType, id)
}

// Internal wraps an unexpected failure.
func Internal(operation string, cause error) error {
	return status.Errorf(codes.Internal, "%s failed: %v", operation, cause)
}

// ResourceExhausted reports a rate limit hit for key.
func ResourceExhausted(key string, retryAfter time.Duration) error {
	return status.Errorf(codes.ResourceExhausted,
		"rate limit exceeded for %s, retry after %s", key, retryAfter.Round(time.Millisecond))
}

// retryAfterSeconds renders d as whole seconds for the retry-after header.
func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}

// codeLabel is the metrics label for err.
func codeLabel(err error) string {
	return status.Code(err).String()
}
