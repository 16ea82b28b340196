// Package observability provides Prometheus metrics instrumentation for the orchestrator.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// REQUEST METRICS
// =============================================================================

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chief_requests_total",
			Help: "Total number of orchestrated user requests",
		},
		[]string{"intent", "status"}, // status: success, error, failure
	)

	requestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chief_request_duration_seconds",
			Help:    "End-to-end request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"intent"},
	)

	classificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chief_intent_classifications_total",
			Help: "Total number of classified requests by intent and complexity",
		},
		[]string{"intent", "complexity"},
	)
)

// =============================================================================
// AGENT METRICS
// =============================================================================

var (
	agentExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chief_agent_executions_total",
			Help: "Total number of capability agent executions",
		},
		[]string{"agent", "status"}, // status: success, error, pending, requires_input
	)

	agentDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chief_agent_duration_seconds",
			Help:    "Capability agent execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"agent"},
	)
)

// =============================================================================
// VALIDATION METRICS
// =============================================================================

var (
	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chief_validations_total",
			Help: "Total number of quality gate verdicts",
		},
		[]string{"agent", "result"}, // result: passed, failed
	)

	validationIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chief_validation_issues_total",
			Help: "Total number of quality gate issues by type and severity",
		},
		[]string{"type", "severity"},
	)
)

// =============================================================================
// TRANSPORT METRICS
// =============================================================================

var (
	grpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chief_grpc_requests_total",
			Help: "Total gRPC requests",
		},
		[]string{"method", "status"}, // status: OK, InvalidArgument, Internal, etc.
	)

	grpcRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chief_grpc_request_duration_seconds",
			Help:    "gRPC request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method"},
	)

	bridgeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chief_bridge_requests_total",
			Help: "Total requests received over the NATS bridge",
		},
		[]string{"subject", "status"}, // status: ok, invalid_request, encode_error
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordRequest records end-to-end request metrics.
func RecordRequest(intent string, status string, durationMS int) {
	requestsTotal.WithLabelValues(intent, status).Inc()
	requestDurationSeconds.WithLabelValues(intent).Observe(float64(durationMS) / 1000.0)
}

// RecordClassification records a classifier verdict.
func RecordClassification(intent string, complexity string) {
	classificationsTotal.WithLabelValues(intent, complexity).Inc()
}

// RecordAgentExecution records agent execution metrics.
// This should be called after agent processing completes.
func RecordAgentExecution(agent string, status string, durationMS int) {
	agentExecutionsTotal.WithLabelValues(agent, status).Inc()
	agentDurationSeconds.WithLabelValues(agent).Observe(float64(durationMS) / 1000.0)
}

// RecordValidation records a quality gate verdict and its issues.
func RecordValidation(agent string, passed bool) {
	result := "passed"
	if !passed {
		result = "failed"
	}
	validationsTotal.WithLabelValues(agent, result).Inc()
}

// RecordValidationIssue records a single quality gate issue.
func RecordValidationIssue(issueType string, severity string) {
	validationIssuesTotal.WithLabelValues(issueType, severity).Inc()
}

// RecordGRPCRequest records gRPC request metrics.
// This should be called from gRPC interceptors.
func RecordGRPCRequest(method string, status string, durationMS int) {
	grpcRequestsTotal.WithLabelValues(method, status).Inc()
	grpcRequestDurationSeconds.WithLabelValues(method).Observe(float64(durationMS) / 1000.0)
}

// RecordBridgeRequest records a request handled by the NATS bridge.
func RecordBridgeRequest(subject string, status string) {
	bridgeRequestsTotal.WithLabelValues(subject, status).Inc()
}
