package compose

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/envelope"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/intent"
)

func success(agent string, data any, took time.Duration) *envelope.Response {
	r := envelope.Success(agent, data)
	r.ProcessingTime = took
	r.MarkValidated(true)
	return r
}

func TestComposeAllSuccess(t *testing.T) {
	c := NewComposer(nil)
	in := intent.Intent{Name: intent.ScheduleMeeting, Complexity: intent.ComplexityMedium}

	result := c.Compose(in, []*envelope.Response{
		success("google_calendar", map[string]any{"id": "a"}, 40*time.Millisecond),
		success("outlook_calendar", map[string]any{"id": "b"}, 60*time.Millisecond),
	})

	assert.True(t, result.Success)
	assert.Equal(t, "Meeting scheduled successfully", result.Message)
	assert.Equal(t, []any{map[string]any{"id": "a"}, map[string]any{"id": "b"}}, result.Results)
	assert.Empty(t, result.PartialResults)
	require.NotNil(t, result.ProcessingSummary)
	assert.Equal(t, 2, result.ProcessingSummary.TotalAgents)
	assert.Equal(t, 100*time.Millisecond, result.ProcessingSummary.TotalProcessingTime)
	assert.Equal(t, intent.ComplexityMedium, result.ProcessingSummary.Complexity)
}

func TestComposePartialFailure(t *testing.T) {
	c := NewComposer(nil)
	in := intent.Intent{Name: intent.SendEmail}

	result := c.Compose(in, []*envelope.Response{
		success("content_generator", map[string]any{"content": "draft"}, time.Millisecond),
		envelope.Failure("gmail", "upstream rejected"),
	})

	assert.False(t, result.Success)
	assert.Equal(t, "upstream rejected", result.Message)
	assert.Equal(t, []any{map[string]any{"content": "draft"}}, result.PartialResults)
	assert.Empty(t, result.Results)
	assert.Nil(t, result.ProcessingSummary)
	assert.Equal(t, intent.SendEmail, result.Intent)
}

func TestComposeJoinsErrors(t *testing.T) {
	c := NewComposer(nil)

	result := c.Compose(intent.Intent{Name: intent.SocialPost}, []*envelope.Response{
		envelope.Failure("content_generator", "agent not found: content_generator"),
		envelope.Failure("linkedin", "validation failed"),
	})

	assert.False(t, result.Success)
	assert.Equal(t, "agent not found: content_generator; validation failed", result.Message)
	assert.Empty(t, result.PartialResults)
}

func TestComposePhrases(t *testing.T) {
	tests := []struct {
		intent string
		want   string
	}{
		{intent.ScheduleMeeting, "Meeting scheduled successfully"},
		{intent.SendEmail, "Email sent successfully"},
		{intent.SocialPost, "Post published successfully"},
		{intent.CreateTask, "Task created successfully"},
		{intent.CreateContent, "Content created successfully"},
		{intent.GeneralQuery, DefaultMessage},
		{"unknown", DefaultMessage},
	}

	c := NewComposer(nil)
	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			result := c.Compose(intent.Intent{Name: tt.intent}, nil)
			assert.True(t, result.Success)
			assert.Equal(t, tt.want, result.Message)
			assert.Equal(t, 0, result.ProcessingSummary.TotalAgents)
		})
	}
}

func TestComposeCustomPhrases(t *testing.T) {
	c := NewComposer(map[string]string{intent.CreateTask: "Added to your list"})

	assert.Equal(t, "Added to your list", c.Phrase(intent.CreateTask))
	assert.Equal(t, DefaultMessage, c.Phrase(intent.SendEmail))
}

func TestComposeSkipsNonTerminal(t *testing.T) {
	c := NewComposer(nil)
	pending := &envelope.Response{Agent: "task_manager", Status: envelope.StatusRequiresInput}

	result := c.Compose(intent.Intent{Name: intent.CreateTask}, []*envelope.Response{
		success("task_manager", map[string]any{"title": "x"}, 0),
		pending,
		nil,
	})

	assert.True(t, result.Success)
	assert.Len(t, result.Results, 1)
	assert.Equal(t, 3, result.ProcessingSummary.TotalAgents)
}

func TestResultJSON(t *testing.T) {
	c := NewComposer(nil)
	result := c.Compose(intent.Intent{Name: intent.CreateTask, Complexity: intent.ComplexityLow}, []*envelope.Response{
		success("task_manager", map[string]any{"title": "x"}, 1500*time.Millisecond),
	})

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, true, decoded["success"])
	assert.NotContains(t, decoded, "partial_results")
	assert.NotContains(t, decoded, "error")
	summary := decoded["processing_summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["total_agents"])
	assert.Equal(t, float64(1500), summary["total_processing_time_ms"])
	assert.Equal(t, "low", summary["complexity"])

	var back Result
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, result.ProcessingSummary, back.ProcessingSummary)
}

func TestFailed(t *testing.T) {
	result := Failed(intent.CreateTask, errors.New("boom"))

	assert.False(t, result.Success)
	assert.Equal(t, FailureMessage, result.Message)
	assert.Equal(t, "boom", result.Error)
	assert.Equal(t, intent.CreateTask, result.Intent)
	assert.Empty(t, result.Results)
	assert.Empty(t, result.PartialResults)

	assert.Empty(t, Failed("", nil).Error)
}
