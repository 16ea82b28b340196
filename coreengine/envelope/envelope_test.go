package envelope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ENVELOPE TESTS
// =============================================================================

func TestNewEnvelope(t *testing.T) {
	env := New("Schedule a meeting", Metadata{UserID: "user-1", SessionID: "sess-1"})

	assert.NotEmpty(t, env.ID)
	assert.Equal(t, OrchestratorSender, env.Sender)
	assert.Equal(t, "Schedule a meeting", env.Task)
	assert.Equal(t, PriorityMedium, env.Priority)
	assert.True(t, env.RequiresValidation)
	assert.Equal(t, "user-1", env.Metadata.UserID)
	assert.NotNil(t, env.Context)
	assert.WithinDuration(t, time.Now().UTC(), env.CreatedAt, time.Second)
}

func TestEnvelopeDerive(t *testing.T) {
	root := New("task", Metadata{UserID: "u"})
	root.Context["intent"] = "send_email"
	root.Priority = PriorityHigh

	hop := root.Derive("gmail", nil)

	assert.NotEqual(t, root.ID, hop.ID)
	assert.Equal(t, "gmail", hop.Recipient)
	assert.Equal(t, PriorityHigh, hop.Priority)
	assert.Equal(t, "send_email", hop.Context.String("intent"))

	// Mutating the hop context must not leak into the root.
	hop.Context["intent"] = "changed"
	assert.Equal(t, "send_email", root.Context.String("intent"))
}

func TestEnvelopeDeriveWithContext(t *testing.T) {
	root := New("task", Metadata{UserID: "u"})
	ctx := Context{"k": "v"}

	hop := root.Derive("linkedin", ctx)

	assert.Equal(t, "v", hop.Context.String("k"))
}

// =============================================================================
// CONTEXT TESTS
// =============================================================================

func TestContextWithPreviousResult(t *testing.T) {
	base := Context{"a": 1}
	next := base.WithPreviousResult(map[string]any{"content": "draft"})

	prev, ok := next.PreviousResult()
	require.True(t, ok)
	assert.Equal(t, "draft", prev.(map[string]any)["content"])

	_, ok = base.PreviousResult()
	assert.False(t, ok, "original context must be untouched")
}

func TestContextAccessors(t *testing.T) {
	ctx := Context{
		"s": "text",
		"m": map[string]any{"x": 1},
		"n": 42,
	}

	assert.Equal(t, "text", ctx.String("s"))
	assert.Equal(t, "", ctx.String("n"))
	assert.Equal(t, 1, ctx.Map("m")["x"])
	assert.Nil(t, ctx.Map("s"))
}

func TestContextStrings(t *testing.T) {
	ctx := Context{
		"typed": []string{"google", "microsoft"},
		"loose": []any{"linkedin", 3, "google"},
		"other": "google",
	}

	assert.Equal(t, []string{"google", "microsoft"}, ctx.Strings("typed"))
	assert.Equal(t, []string{"linkedin", "google"}, ctx.Strings("loose"))
	assert.Nil(t, ctx.Strings("other"))
	assert.Nil(t, ctx.Strings("missing"))
}

func TestContextCloneDeep(t *testing.T) {
	orig := Context{"nested": map[string]any{"list": []any{"a"}}}
	clone := orig.Clone()

	clone.Map("nested")["list"] = []any{"b"}

	assert.Equal(t, []any{"a"}, orig.Map("nested")["list"])
}

func TestNilContextClone(t *testing.T) {
	var ctx Context
	assert.NotNil(t, ctx.Clone())
}

// =============================================================================
// RESPONSE TESTS
// =============================================================================

func TestResponseConstructors(t *testing.T) {
	ok := Success("gmail", map[string]any{"subject": "hi"})
	assert.True(t, ok.IsSuccess())
	assert.False(t, ok.IsError())
	assert.Equal(t, "gmail", ok.Agent)
	assert.NotEmpty(t, ok.ID)

	bad := Failure("linkedin", "agent not found: %s", "linkedin")
	assert.True(t, bad.IsError())
	assert.Equal(t, "agent not found: linkedin", bad.Error)
}

func TestResponseEligibleForValidation(t *testing.T) {
	tests := []struct {
		name     string
		resp     *Response
		expected bool
	}{
		{"success with data", Success("a", map[string]any{}), true},
		{"success without data", Success("a", nil), false},
		{"error", Failure("a", "boom"), false},
		{"pending", &Response{Status: StatusPending, Data: "x"}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.resp.EligibleForValidation())
		})
	}
}

func TestResponseCloneRegeneratesID(t *testing.T) {
	r := Success("a", "data")
	r.MarkValidated(true)

	c := r.Clone()

	assert.NotEqual(t, r.ID, c.ID)
	require.NotNil(t, c.ValidationPassed)
	assert.True(t, *c.ValidationPassed)
	*c.ValidationPassed = false
	assert.True(t, *r.ValidationPassed)
}

func TestResponseProcessingTimeMS(t *testing.T) {
	r := &Response{ProcessingTime: 1500 * time.Millisecond}
	assert.Equal(t, int64(1500), r.ProcessingTimeMS())
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, PriorityUrgent.IsValid())
	assert.False(t, Priority("critical").IsValid())
	assert.True(t, StatusSuccess.IsTerminal())
	assert.True(t, StatusError.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRequiresInput.IsTerminal())
}
