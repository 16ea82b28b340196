package envelope

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Response is what a capability agent returns for one envelope.
type Response struct {
	ID               string        `json:"id"`
	Agent            string        `json:"agent"`
	Status           Status        `json:"status"`
	Data             any           `json:"data,omitempty"`
	Error            string        `json:"error,omitempty"`
	NextAgent        string        `json:"next_agent,omitempty"`
	ValidationPassed *bool         `json:"validation_passed,omitempty"`
	ProcessingTime   time.Duration `json:"processing_time"`
}

// Success builds a successful response carrying data.
func Success(agent string, data any) *Response {
	return &Response{
		ID:     uuid.New().String(),
		Agent:  agent,
		Status: StatusSuccess,
		Data:   data,
	}
}

// Failure builds an error response with the given message.
func Failure(agent string, format string, args ...any) *Response {
	return &Response{
		ID:     uuid.New().String(),
		Agent:  agent,
		Status: StatusError,
		Error:  fmt.Sprintf(format, args...),
	}
}

// IsSuccess reports whether the response status is success.
func (r *Response) IsSuccess() bool {
	return r != nil && r.Status == StatusSuccess
}

// IsError reports whether the response status is error.
func (r *Response) IsError() bool {
	return r != nil && r.Status == StatusError
}

// EligibleForValidation reports whether the quality gate should inspect the response.
func (r *Response) EligibleForValidation() bool {
	return r.IsSuccess() && r.Data != nil
}

// Clone returns a copy of the response with a fresh id.
func (r *Response) Clone() *Response {
	c := *r
	c.ID = uuid.New().String()
	if r.ValidationPassed != nil {
		v := *r.ValidationPassed
		c.ValidationPassed = &v
	}
	return &c
}

// MarkValidated records the quality gate verdict on the response.
func (r *Response) MarkValidated(passed bool) {
	r.ValidationPassed = &passed
}

// ProcessingTimeMS returns the processing time in whole milliseconds.
func (r *Response) ProcessingTimeMS() int64 {
	return r.ProcessingTime.Milliseconds()
}
