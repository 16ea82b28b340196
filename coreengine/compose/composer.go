// Package compose merges validated agent responses into the final result
// returned to the caller.
package compose

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/envelope"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/intent"
)

// DefaultMessage is used when an intent has no entry in the phrase table.
const DefaultMessage = "Request completed successfully"

// FailureMessage is the apologetic message for unexpected system failures.
const FailureMessage = "Sorry, something went wrong while processing your request."

// DefaultPhrases maps intent names to their success message.
func DefaultPhrases() map[string]string {
	return map[string]string{
		intent.ScheduleMeeting: "Meeting scheduled successfully",
		intent.SendEmail:       "Email sent successfully",
		intent.SocialPost:      "Post published successfully",
		intent.CreateTask:      "Task created successfully",
		intent.CreateContent:   "Content created successfully",
	}
}

// ProcessingSummary describes the work behind a fully successful result.
type ProcessingSummary struct {
	TotalAgents         int               `json:"total_agents"`
	TotalProcessingTime time.Duration     `json:"-"`
	Complexity          intent.Complexity `json:"complexity"`
}

// MarshalJSON reports the processing time in milliseconds.
func (s ProcessingSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalAgents         int               `json:"total_agents"`
		TotalProcessingTime int64             `json:"total_processing_time_ms"`
		Complexity          intent.Complexity `json:"complexity"`
	}{s.TotalAgents, s.TotalProcessingTime.Milliseconds(), s.Complexity})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (s *ProcessingSummary) UnmarshalJSON(data []byte) error {
	var wire struct {
		TotalAgents         int               `json:"total_agents"`
		TotalProcessingTime int64             `json:"total_processing_time_ms"`
		Complexity          intent.Complexity `json:"complexity"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.TotalAgents = wire.TotalAgents
	s.TotalProcessingTime = time.Duration(wire.TotalProcessingTime) * time.Millisecond
	s.Complexity = wire.Complexity
	return nil
}

// Result is the single outcome of one user request.
type Result struct {
	Success           bool               `json:"success"`
	Message           string             `json:"message"`
	Results           []any              `json:"results,omitempty"`
	PartialResults    []any              `json:"partial_results,omitempty"`
	Intent            string             `json:"intent,omitempty"`
	ProcessingSummary *ProcessingSummary `json:"processing_summary,omitempty"`
	Error             string             `json:"error,omitempty"`
}

// Failed builds the result for an unexpected failure. err is kept for diagnostics.
func Failed(intentName string, err error) *Result {
	r := &Result{
		Success: false,
		Message: FailureMessage,
		Intent:  intentName,
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Composer turns validated responses into a Result.
type Composer struct {
	phrases map[string]string
}

// NewComposer creates a Composer. A nil phrase table uses DefaultPhrases.
func NewComposer(phrases map[string]string) *Composer {
	if phrases == nil {
		phrases = DefaultPhrases()
	}
	return &Composer{phrases: phrases}
}

// Phrase returns the success message for intentName.
func (c *Composer) Phrase(intentName string) string {
	if p, ok := c.phrases[intentName]; ok {
		return p
	}
	return DefaultMessage
}

// Compose partitions responses into successes and errors. Any error makes the
// result unsuccessful with the successful payloads kept as partial results.
// Responses with a non-terminal status count as neither.
func (c *Composer) Compose(in intent.Intent, responses []*envelope.Response) *Result {
	var (
		payloads []any
		errs     []string
		total    time.Duration
	)
	for _, resp := range responses {
		if resp == nil {
			continue
		}
		total += resp.ProcessingTime
		switch {
		case resp.IsError():
			errs = append(errs, resp.Error)
		case resp.IsSuccess():
			payloads = append(payloads, resp.Data)
		}
	}

	if len(errs) > 0 {
		return &Result{
			Success:        false,
			Message:        strings.Join(errs, "; "),
			PartialResults: payloads,
			Intent:         in.Name,
		}
	}

	return &Result{
		Success: true,
		Message: c.Phrase(in.Name),
		Results: payloads,
		Intent:  in.Name,
		ProcessingSummary: &ProcessingSummary{
			TotalAgents:         len(responses),
			TotalProcessingTime: total,
			Complexity:          in.Complexity,
		},
	}
}
