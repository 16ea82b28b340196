// Package validation implements the quality gate applied to every successful
// agent response before it reaches the composer.
package validation

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/config"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/envelope"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/observability"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/typeutil"
)

// FailureMessage replaces the error of a response rejected by the gate.
const FailureMessage = "validation failed"

// Severity ranks an issue. Only SeverityHigh blocks a response.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// IssueType names the check that raised an issue.
type IssueType string

const (
	IssueStructural    IssueType = "structural"
	IssueContentSafety IssueType = "content_safety"
	IssuePlatformLimit IssueType = "platform_limit"
	IssueTemporal      IssueType = "temporal"
)

// Issue is a single finding.
type Issue struct {
	Type     IssueType `json:"type"`
	Field    string    `json:"field,omitempty"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
}

// Result is the verdict for one payload.
type Result struct {
	Passed          bool     `json:"passed"`
	Issues          []Issue  `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// HighSeverityCount returns the number of blocking issues.
func (r Result) HighSeverityCount() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityHigh {
			n++
		}
	}
	return n
}

// Request is a payload tagged with the capability that produced it.
type Request struct {
	Capability string
	Data       any
}

// FailureHook is called for each response the gate rejects.
type FailureHook func(ctx context.Context, resp *envelope.Response, result Result)

var (
	// sensitivePatterns are checked against content fields; any match is high severity.
	sensitivePatterns = []struct {
		label   string
		pattern *regexp.Regexp
	}{
		{"sensitive keyword", regexp.MustCompile(`(?i)\b(?:passwords?|secrets?|confidential|private[\s_-]?keys?)\b`)},
		{"social security number", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
		{"card number", regexp.MustCompile(`\d{16}`)},
	}

	// contentFields are scanned by the content safety check.
	contentFields = []string{"content"}

	// temporalFields hold scheduled timestamps that must not be in the past.
	temporalFields = []string{"scheduled_time", "start_time", "scheduled_at"}
)

// QualityGate runs structural, content safety, platform limit and temporal
// checks, in that order.
type QualityGate struct {
	limits    config.PlatformLimits
	logger    logging.Logger
	now       func() time.Time
	onFailure FailureHook
}

// NewQualityGate creates a QualityGate. Nil limits use config.DefaultPlatformLimits.
func NewQualityGate(limits config.PlatformLimits, logger logging.Logger) *QualityGate {
	if limits == nil {
		limits = config.DefaultPlatformLimits()
	}
	return &QualityGate{
		limits: limits,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// WithClock overrides the time source used by the temporal check.
func (g *QualityGate) WithClock(now func() time.Time) *QualityGate {
	g.now = now
	return g
}

// OnFailure registers a hook called for each rejected response.
func (g *QualityGate) OnFailure(hook FailureHook) {
	g.onFailure = hook
}

// Validate checks one payload.
func (g *QualityGate) Validate(req Request) Result {
	result := Result{Issues: []Issue{}, Recommendations: []string{}}

	data, ok := typeutil.AsMap(req.Data)
	if !ok {
		result.add(Issue{
			Type:     IssueStructural,
			Message:  fmt.Sprintf("response data must be a structured object, got %T", req.Data),
			Severity: SeverityHigh,
		})
		result.Passed = false
		return result
	}

	g.checkContentSafety(data, &result)
	g.checkPlatformLimits(req.Capability, data, &result)
	g.checkTemporal(data, &result)

	result.Passed = result.HighSeverityCount() == 0
	return result
}

// Apply validates every eligible response in place and returns responses.
// Passing responses are marked validated; failing ones are rewritten to
// status error. Responses that are not successful with data are left as-is.
func (g *QualityGate) Apply(ctx context.Context, responses []*envelope.Response) []*envelope.Response {
	for _, resp := range responses {
		if !resp.EligibleForValidation() {
			continue
		}

		result := g.Validate(Request{Capability: resp.Agent, Data: resp.Data})
		observability.RecordValidation(resp.Agent, result.Passed)
		for _, issue := range result.Issues {
			observability.RecordValidationIssue(string(issue.Type), string(issue.Severity))
		}

		if result.Passed {
			resp.MarkValidated(true)
			if len(result.Issues) > 0 {
				g.logger.Info("validation_passed_with_issues",
					"agent", resp.Agent,
					"issues", len(result.Issues),
					"recommendations", result.Recommendations,
				)
			}
			continue
		}

		g.logger.Warn("validation_failed",
			"agent", resp.Agent,
			"response_id", resp.ID,
			"high_severity", result.HighSeverityCount(),
			"issues", issueMessages(result.Issues),
		)
		resp.Status = envelope.StatusError
		resp.Error = FailureMessage
		resp.Data = nil
		resp.MarkValidated(false)

		if g.onFailure != nil {
			g.onFailure(ctx, resp, result)
		}
	}
	return responses
}

// =============================================================================
// CHECKS
// =============================================================================

func (g *QualityGate) checkContentSafety(data map[string]any, result *Result) {
	for _, field := range contentFields {
		text, ok := typeutil.String(data[field])
		if !ok || text == "" {
			continue
		}
		for _, sp := range sensitivePatterns {
			if sp.pattern.MatchString(text) {
				result.add(Issue{
					Type:     IssueContentSafety,
					Field:    field,
					Message:  fmt.Sprintf("%s contains a %s", field, sp.label),
					Severity: SeverityHigh,
				})
			}
		}
	}
}

func (g *QualityGate) checkPlatformLimits(capability string, data map[string]any, result *Result) {
	fields := g.limits[capability]
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, field := range names {
		text, ok := typeutil.String(data[field])
		if !ok {
			continue
		}
		max := fields[field]
		if n := utf8.RuneCountInString(text); n > max {
			result.add(Issue{
				Type:     IssuePlatformLimit,
				Field:    field,
				Message:  fmt.Sprintf("%s is %d characters, %s allows %d", field, n, capability, max),
				Severity: SeverityMedium,
			})
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("Trim %s to %d characters for %s", field, max, capability))
		}
	}
}

func (g *QualityGate) checkTemporal(data map[string]any, result *Result) {
	now := g.now()
	for _, field := range temporalFields {
		raw, present := data[field]
		if !present || raw == nil {
			continue
		}
		t, ok, err := typeutil.Time(raw)
		if !ok {
			reason := fmt.Sprintf("unsupported type %T", raw)
			if err != nil {
				reason = err.Error()
			}
			result.add(Issue{
				Type:     IssueTemporal,
				Field:    field,
				Message:  fmt.Sprintf("%s could not be read as a timestamp: %s", field, reason),
				Severity: SeverityMedium,
			})
			continue
		}
		if t.Before(now) {
			result.add(Issue{
				Type:     IssueTemporal,
				Field:    field,
				Message:  fmt.Sprintf("%s %s is in the past", field, t.Format(time.RFC3339)),
				Severity: SeverityHigh,
			})
		}
	}
}

func (r *Result) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

func issueMessages(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Message
	}
	return out
}
