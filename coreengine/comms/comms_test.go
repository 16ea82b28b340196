package comms

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GharaibehR/Chief-of-Staff/commbus"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/compose"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/config"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/kernel"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/testutil"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// startNATS runs an in-process NATS server on a random port.
func startNATS(t *testing.T) *natsserver.Server {
	t.Helper()

	ns, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   natsserver.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go ns.Start()
	require.True(t, ns.ReadyForConnections(10*time.Second), "nats server failed to start")

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns
}

func connect(t *testing.T, ns *natsserver.Server) *nats.Conn {
	t.Helper()
	nc, err := Connect(ns.ClientURL(), t.Name(), testutil.NewMockLogger())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

type bridgeFixture struct {
	orch   *kernel.Orchestrator
	agent  *testutil.MockAgent
	bridge *Bridge
	logger *testutil.MockLogger
	client *nats.Conn
	cfg    config.NATSConfig
}

func startBridge(t *testing.T, bus commbus.CommBus) *bridgeFixture {
	t.Helper()
	return startBridgeOn(t, startNATS(t), bus)
}

// startBridgeOn starts a bridge in the default queue group on ns.
func startBridgeOn(t *testing.T, ns *natsserver.Server, bus commbus.CommBus) *bridgeFixture {
	t.Helper()

	agent := testutil.NewMockAgent(config.CapabilityTaskManager).WithData(map[string]any{"title": "renew passport"})
	orch := kernel.NewOrchestrator(kernel.Deps{Bus: bus})
	require.NoError(t, orch.RegisterAgent(config.CapabilityTaskManager, agent))

	cfg := config.DefaultCoreConfig().NATS
	cfg.RequestTimeout = 5 * time.Second

	logger := testutil.NewMockLogger()
	bridge := NewBridge(connect(t, ns), orch, cfg, logger)
	require.NoError(t, bridge.Start())
	t.Cleanup(bridge.Stop)

	return &bridgeFixture{orch: orch, agent: agent, bridge: bridge, logger: logger, client: connect(t, ns), cfg: cfg}
}

// =============================================================================
// BRIDGE TESTS
// =============================================================================

func TestBridge_Submit(t *testing.T) {
	f := startBridge(t, nil)

	result, err := Submit(context.Background(), f.client, f.cfg.Subject,
		kernel.Request{Text: "Create a task to renew the passport", UserID: "u1"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Task created successfully", result.Message)
	require.Len(t, result.Results, 1)
	assert.Equal(t, map[string]any{"title": "renew passport"}, result.Results[0])
	assert.Equal(t, 1, f.agent.GetCallCount())
}

func TestBridge_InvalidPayloads(t *testing.T) {
	f := startBridge(t, nil)

	tests := []struct {
		name    string
		payload string
		errText string
	}{
		{"not json", "not json", "invalid character"},
		{"empty text", `{"text":"  ","user_id":"u1"}`, "text is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := f.client.Request(f.cfg.Subject, []byte(tt.payload), 2*time.Second)
			require.NoError(t, err)

			var result compose.Result
			require.NoError(t, json.Unmarshal(msg.Data, &result))
			assert.False(t, result.Success)
			assert.Equal(t, InvalidRequestMessage, result.Message)
			assert.Contains(t, result.Error, tt.errText)
		})
	}
	assert.Zero(t, f.agent.GetCallCount())
}

func TestBridge_Cancel(t *testing.T) {
	f := startBridge(t, nil)
	f.agent.WithDelay(10 * time.Second)

	results := make(chan *compose.Result, 1)
	go func() {
		r, err := Submit(context.Background(), f.client, f.cfg.Subject,
			kernel.Request{RequestID: "req-1", Text: "Create a task", UserID: "u1"})
		if err != nil {
			r = compose.Failed("", err)
		}
		results <- r
	}()

	require.Eventually(t, func() bool {
		return len(f.orch.InFlight()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	reply, err := Cancel(context.Background(), f.client, f.cfg.Subject, "req-1", "superseded")
	require.NoError(t, err)
	assert.True(t, reply.Cancelled)
	assert.Empty(t, reply.Error)

	select {
	case r := <-results:
		assert.False(t, r.Success)
		assert.Contains(t, r.Message, "request req-1 superseded")
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not reply")
	}
}

func TestBridge_CancelUnknown(t *testing.T) {
	f := startBridge(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	reply, err := Cancel(ctx, f.client, f.cfg.Subject, "nope", "")

	require.NoError(t, err)
	assert.False(t, reply.Cancelled)
	assert.Equal(t, "nope", reply.RequestID)
	assert.Contains(t, reply.Error, "request not found")
	assert.Eventually(t, func() bool {
		return f.logger.HasLog("debug", "nats_cancel_not_owned")
	}, time.Second, 5*time.Millisecond)
}

func TestBridge_CancelReachesOwningProcess(t *testing.T) {
	ns := startNATS(t)
	first := startBridgeOn(t, ns, nil)
	second := startBridgeOn(t, ns, nil)
	first.agent.WithDelay(10 * time.Second)
	second.agent.WithDelay(10 * time.Second)

	results := make(chan *compose.Result, 1)
	go func() {
		r, err := Submit(context.Background(), first.client, first.cfg.Subject,
			kernel.Request{RequestID: "req-1", Text: "Create a task", UserID: "u1"})
		if err != nil {
			r = compose.Failed("", err)
		}
		results <- r
	}()

	// The queue group hands the submission to exactly one of the two bridges.
	require.Eventually(t, func() bool {
		return len(first.orch.InFlight())+len(second.orch.InFlight()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	running, idle := first, second
	if len(second.orch.InFlight()) == 1 {
		running, idle = second, first
	}

	reply, err := Cancel(context.Background(), idle.client, idle.cfg.Subject, "req-1", "superseded")
	require.NoError(t, err)
	assert.True(t, reply.Cancelled)
	assert.Empty(t, reply.Error)

	select {
	case r := <-results:
		assert.False(t, r.Success)
		assert.Contains(t, r.Message, "request req-1 superseded")
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not reply")
	}
	assert.Empty(t, running.orch.InFlight())
	assert.Eventually(t, func() bool {
		return idle.logger.HasLog("debug", "nats_cancel_not_owned")
	}, time.Second, 5*time.Millisecond)
}

func TestBridge_StopDropsLateSubmissions(t *testing.T) {
	f := startBridge(t, nil)
	f.bridge.Stop()

	f.bridge.dispatchSubmit(&nats.Msg{Subject: f.cfg.Subject, Data: []byte(`{"text":"Create a task"}`)})
	f.bridge.Stop()

	assert.Zero(t, f.agent.GetCallCount())
	assert.True(t, f.logger.HasLog("warn", "nats_request_dropped"))
}

// =============================================================================
// FORWARDER TESTS
// =============================================================================

func TestEventForwarder_ForwardsLifecycle(t *testing.T) {
	bus := commbus.NewInMemoryCommBus(0, nil)
	f := startBridge(t, bus)

	forwarder := NewEventForwarder(f.client, bus, "", testutil.NewMockLogger())
	forwarder.Start()
	defer forwarder.Stop()

	sub, err := f.client.SubscribeSync(DefaultEventPrefix + ".>")
	require.NoError(t, err)
	require.NoError(t, f.client.Flush())

	result := f.orch.Submit(context.Background(), "Create a task to renew the passport", "u1")
	require.True(t, result.Success)

	var subjects []string
	var completed commbus.RequestCompleted
	for len(subjects) < 5 {
		msg, err := sub.NextMsg(2 * time.Second)
		require.NoError(t, err)
		subjects = append(subjects, msg.Subject)
		if msg.Subject == forwarder.Subject("RequestCompleted") {
			require.NoError(t, json.Unmarshal(msg.Data, &completed))
		}
	}

	assert.Equal(t, []string{
		"chiefofstaff.events.request_started",
		"chiefofstaff.events.intent_classified",
		"chiefofstaff.events.agent_started",
		"chiefofstaff.events.agent_completed",
		"chiefofstaff.events.request_completed",
	}, subjects)
	assert.True(t, completed.Success)
	assert.Equal(t, "create_task", completed.Intent)
}

func TestEventForwarder_StopsOnOpenCircuit(t *testing.T) {
	ns := startNATS(t)
	nc := connect(t, ns)

	bus := commbus.NewInMemoryCommBus(0, nil)
	breaker := commbus.NewCircuitBreakerMiddleware(2, time.Hour, nil, nil)
	bus.AddMiddleware(breaker)

	forwarder := NewEventForwarder(nc, bus, "test.events", nil)
	forwarder.Start()
	defer forwarder.Stop()

	nc.Close()
	for i := 0; i < 3; i++ {
		_ = bus.Publish(context.Background(), &commbus.RequestCompleted{RequestID: "r"})
	}

	assert.Equal(t, commbus.CircuitOpen, breaker.GetStates()["RequestCompleted"])
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"RequestStarted":   "request_started",
		"IntentClassified": "intent_classified",
		"ValidationFailed": "validation_failed",
		"x":                "x",
	}
	for in, want := range tests {
		assert.Equal(t, want, snakeCase(in))
	}
}
