package capabilities

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/config"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/envelope"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/intent"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/kernel"
)

// Tuesday.
var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedOptions() Options {
	return Options{Now: func() time.Time { return fixedNow }}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// DATE & TIME RESOLUTION
// =============================================================================

func TestResolveDate(t *testing.T) {
	tests := []struct {
		token string
		want  time.Time
		ok    bool
	}{
		{"today", day(2026, 3, 10), true},
		{"Tomorrow", day(2026, 3, 11), true},
		{"next  week", day(2026, 3, 17), true},
		{"friday", day(2026, 3, 13), true},
		{"Tuesday", day(2026, 3, 17), true},
		{"monday", day(2026, 3, 16), true},
		{"2026-04-01", day(2026, 4, 1), true},
		{"4/1", day(2026, 4, 1), true},
		{"3/1", day(2027, 3, 1), true},
		{"12-25-27", day(2027, 12, 25), true},
		{"2/30", time.Time{}, false},
		{"13/1", time.Time{}, false},
		{"someday", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ResolveDate(fixedNow, tt.token)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		token        string
		hour, minute int
		ok           bool
	}{
		{"2:30 pm", 14, 30, true},
		{"2:30 p.m.", 14, 30, true},
		{"12:00 am", 0, 0, true},
		{"12:15 PM", 12, 15, true},
		{"9:05", 9, 5, true},
		{"23:59", 23, 59, true},
		{"24:00", 0, 0, false},
		{"13:00 pm", 0, 0, false},
		{"9:75", 0, 0, false},
		{"noon", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			h, m, ok := ParseClock(tt.token)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.hour, h)
				assert.Equal(t, tt.minute, m)
			}
		})
	}
}

func TestResolveStart(t *testing.T) {
	tests := []struct {
		name     string
		entities intent.Entities
		want     time.Time
	}{
		{"nothing", intent.Entities{}, time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)},
		{"time passed today", intent.Entities{Times: []string{"10:00"}}, time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)},
		{"time later today", intent.Entities{Times: []string{"3:00 pm"}}, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)},
		{"date only", intent.Entities{Dates: []string{"tomorrow"}}, time.Date(2026, 3, 11, DefaultHour, 0, 0, 0, time.UTC)},
		{"today after default hour", intent.Entities{Dates: []string{"today"}}, time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)},
		{"today with passed time stays", intent.Entities{Dates: []string{"today"}, Times: []string{"10:00"}}, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)},
		{"date and time", intent.Entities{Dates: []string{"friday"}, Times: []string{"2:30 pm"}}, time.Date(2026, 3, 13, 14, 30, 0, 0, time.UTC)},
		{"first resolvable date", intent.Entities{Dates: []string{"2/30", "today"}, Times: []string{"4:00 pm"}}, time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStart(fixedNow, tt.entities))
		})
	}
}

// =============================================================================
// AGENTS
// =============================================================================

func newEnv(task, intentName string) *envelope.Envelope {
	env := envelope.New(task, envelope.Metadata{UserID: "u"})
	env.Context[envelope.IntentKey] = intentName
	ents := intent.ExtractEntities(task)
	env.Context[envelope.EntitiesKey] = map[string]any{
		"dates":  ents.Dates,
		"times":  ents.Times,
		"people": ents.People,
	}
	return env
}

func dataOf(t *testing.T, resp *envelope.Response) map[string]any {
	t.Helper()
	require.True(t, resp.IsSuccess(), resp.Error)
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	return m
}

func TestContentGenerator(t *testing.T) {
	g := &ContentGenerator{}

	data := dataOf(t, g.Process(context.Background(), newEnv("Send an email to the team about the quarterly update.", intent.SendEmail)))
	assert.Equal(t, "The quarterly update", data["subject"])
	assert.Contains(t, data["content"], "regarding the quarterly update")

	data = dataOf(t, g.Process(context.Background(), newEnv("Share a post on LinkedIn about our new office", intent.SocialPost)))
	assert.Equal(t, "Excited to share an update on our new office.", data["content"])

	resp := g.Process(context.Background(), newEnv("   ", intent.GeneralQuery))
	assert.True(t, resp.IsError())
}

func TestCalendar(t *testing.T) {
	c := All(fixedOptions())[config.CapabilityGoogleCalendar]

	data := dataOf(t, c.Process(context.Background(), newEnv("Schedule a meeting with Jane Doe friday at 2:30 pm", intent.ScheduleMeeting)))

	assert.Equal(t, "Meeting with Jane Doe", data["title"])
	assert.Equal(t, "2026-03-13T14:30:00Z", data["start_time"])
	assert.Equal(t, "2026-03-13T15:00:00Z", data["end_time"])
	assert.Equal(t, config.CapabilityGoogleCalendar, data["provider"])
	assert.Equal(t, []string{"Jane Doe"}, data["attendees"])
	assert.Contains(t, data["event_id"], "evt_")
}

func TestCalendarFallsBackToTaskEntities(t *testing.T) {
	c := All(fixedOptions())[config.CapabilityOutlookCalendar]
	env := envelope.New("Book a call tomorrow", envelope.Metadata{})

	data := dataOf(t, c.Process(context.Background(), env))

	assert.Equal(t, "2026-03-11T09:00:00Z", data["start_time"])
	assert.Equal(t, []string{}, data["attendees"])
}

func TestMailerUsesDraft(t *testing.T) {
	m := &Mailer{Provider: config.CapabilityGmail}
	env := newEnv("send an email to Bob Smith about the budget", intent.SendEmail)
	env.Context = env.Context.WithPreviousResult(map[string]any{"content": "Draft body", "subject": "Budget"})

	data := dataOf(t, m.Process(context.Background(), env))

	assert.Equal(t, "Draft body", data["content"])
	assert.Equal(t, "Budget", data["subject"])
	assert.Equal(t, []string{"Bob Smith"}, data["to"])
	assert.Equal(t, "sent", data["status"])
}

func TestMailerWithoutDraft(t *testing.T) {
	m := &Mailer{Provider: config.CapabilityOutlookMail}

	data := dataOf(t, m.Process(context.Background(), newEnv("Reply to the mail about invoices", intent.SendEmail)))

	assert.Equal(t, "Reply to the mail about invoices", data["content"])
	assert.Equal(t, "Invoices", data["subject"])
}

func TestSocialPoster(t *testing.T) {
	s := &SocialPoster{}
	env := newEnv("Post on LinkedIn", intent.SocialPost)

	assert.True(t, s.Process(context.Background(), env).IsError())

	env.Context = env.Context.WithPreviousResult(map[string]any{"content": "Hello network"})
	data := dataOf(t, s.Process(context.Background(), env))
	assert.Equal(t, "Hello network", data["content"])
	assert.Equal(t, "published", data["status"])
}

func TestTaskManager(t *testing.T) {
	tm := All(fixedOptions())[config.CapabilityTaskManager]

	data := dataOf(t, tm.Process(context.Background(), newEnv("remind me to file taxes on friday", intent.CreateTask)))
	assert.Equal(t, "Remind me to file taxes on friday", data["title"])
	assert.Equal(t, "2026-03-13", data["due_date"])
	assert.Equal(t, "medium", data["priority"])

	data = dataOf(t, tm.Process(context.Background(), newEnv("add a task to water plants", intent.CreateTask)))
	assert.NotContains(t, data, "due_date")
}

// =============================================================================
// REGISTRATION & END TO END
// =============================================================================

func TestAllCoversDefaultRoutingTable(t *testing.T) {
	all := All(Options{})
	table := config.DefaultRoutingTable()

	for _, name := range table.IntentNames() {
		for _, route := range table.Routes[name] {
			for _, agent := range route.Agents {
				assert.Contains(t, all, agent)
			}
		}
	}
	for _, agent := range table.Fallback.Agents {
		assert.Contains(t, all, agent)
	}
}

func TestEndToEndWithLocalAgents(t *testing.T) {
	o := kernel.NewOrchestrator(kernel.Deps{AgentTimeout: time.Second})
	require.NoError(t, RegisterAll(o, Options{}))

	tests := []struct {
		text    string
		intent  string
		message string
		agents  int
	}{
		{"Schedule a meeting with Jane Doe tomorrow at 2:30 pm on Google Calendar", intent.ScheduleMeeting, "Meeting scheduled successfully", 1},
		{"Schedule a meeting with Jane Doe today", intent.ScheduleMeeting, "Meeting scheduled successfully", 1},
		{"Schedule a sync on Google and Outlook next week", intent.ScheduleMeeting, "Meeting scheduled successfully", 2},
		{"Send an email to Bob Smith about the budget", intent.SendEmail, "Email sent successfully", 2},
		{"Share a post on LinkedIn about our new office", intent.SocialPost, "Post published successfully", 2},
		{"Create a task to renew the passport", intent.CreateTask, "Task created successfully", 1},
		{"Write an article about remote work", intent.CreateContent, "Content created successfully", 1},
		{"How busy am I", intent.GeneralQuery, "Request completed successfully", 1},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			result := o.Submit(context.Background(), tt.text, "user-1")

			require.True(t, result.Success, result.Message)
			assert.Equal(t, tt.intent, result.Intent)
			assert.Equal(t, tt.message, result.Message)
			assert.Equal(t, tt.agents, result.ProcessingSummary.TotalAgents)
		})
	}
}

func TestEndToEndSensitiveContentRejected(t *testing.T) {
	o := kernel.NewOrchestrator(kernel.Deps{})
	require.NoError(t, RegisterAll(o, Options{}))

	result := o.Submit(context.Background(), "Share a post on LinkedIn about my password rotation", "user-1")

	assert.False(t, result.Success)
	assert.Equal(t, "validation failed; validation failed", result.Message)
}
