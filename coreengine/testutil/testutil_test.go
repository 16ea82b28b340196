package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockAgentDefaults(t *testing.T) {
	agent := NewMockAgent("gmail")

	resp := agent.Process(context.Background(), NewTestEnvelope("send"))

	assert.True(t, resp.IsSuccess())
	assert.Equal(t, map[string]any{"agent": "gmail"}, resp.Data)
	assert.Equal(t, 1, agent.GetCallCount())
	assert.Equal(t, "send", agent.LastCall().Task)
}

func TestMockAgentError(t *testing.T) {
	resp := NewMockAgent("x").WithError("upstream rejected").Process(context.Background(), NewTestEnvelope("t"))

	assert.True(t, resp.IsError())
	assert.Equal(t, "upstream rejected", resp.Error)
}

func TestMockAgentStatusOverride(t *testing.T) {
	resp := NewMockAgent("x").WithStatus(envelope.StatusRequiresInput).Process(context.Background(), NewTestEnvelope("t"))
	assert.Equal(t, envelope.StatusRequiresInput, resp.Status)
}

func TestMockAgentDelayHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := NewMockAgent("slow").WithDelay(time.Second).Process(ctx, NewTestEnvelope("t"))

	assert.True(t, resp.IsError())
}

func TestMockLoggerBindSharesEntries(t *testing.T) {
	logger := NewMockLogger()
	child := logger.Bind("agent", "gmail")

	child.Info("agent_completed", "duration_ms", 3)

	require.True(t, logger.HasLog("info", "agent_completed"))
	entry, ok := logger.FindLog("agent_completed")
	require.True(t, ok)
	assert.Equal(t, "gmail", entry.Fields["agent"])
	assert.Equal(t, 3, entry.Fields["duration_ms"])

	logger.Clear()
	assert.Empty(t, logger.GetLogs())
}

func TestMockEventContext(t *testing.T) {
	ec := NewMockEventContext()
	env := NewTestEnvelope("t")

	require.NoError(t, ec.EmitAgentStarted(context.Background(), "a", env))
	require.NoError(t, ec.EmitAgentCompleted(context.Background(), "a", envelope.Success("a", nil)))

	assert.Len(t, ec.GetEvents(), 2)
	assert.Equal(t, []string{"a"}, ec.GetCompletedAgents())
}
