package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detected(name string, platforms ...intent.Platform) intent.Intent {
	return intent.Intent{Name: name, Platforms: platforms}
}

// =============================================================================
// PLANNER TESTS
// =============================================================================

func TestPlannerDefaultTable(t *testing.T) {
	tests := []struct {
		name     string
		in       intent.Intent
		agents   []string
		parallel bool
	}{
		{"meeting on both suites", detected(intent.ScheduleMeeting, intent.PlatformGoogle, intent.PlatformMicrosoft), []string{"google_calendar", "outlook_calendar"}, true},
		{"meeting on outlook", detected(intent.ScheduleMeeting, intent.PlatformMicrosoft), []string{"outlook_calendar"}, false},
		{"meeting on google", detected(intent.ScheduleMeeting, intent.PlatformGoogle), []string{"google_calendar"}, false},
		{"meeting without platform", detected(intent.ScheduleMeeting), []string{"google_calendar"}, false},
		{"email on gmail", detected(intent.SendEmail, intent.PlatformGoogle), []string{"content_generator", "gmail"}, false},
		{"email on outlook", detected(intent.SendEmail, intent.PlatformMicrosoft), []string{"content_generator", "outlook_mail"}, false},
		{"email without platform", detected(intent.SendEmail), []string{"content_generator", "gmail"}, false},
		{"social post", detected(intent.SocialPost, intent.PlatformLinkedIn), []string{"content_generator", "linkedin"}, false},
		{"task", detected(intent.CreateTask), []string{"task_manager"}, false},
		{"content", detected(intent.CreateContent), []string{"content_generator"}, false},
		{"general query falls back", detected(intent.GeneralQuery), []string{"content_generator"}, false},
		{"unknown intent falls back", detected("book_flight"), []string{"content_generator"}, false},
	}

	p := NewPlanner(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := p.Plan(tt.in)

			assert.Equal(t, tt.agents, plan.Agents)
			assert.Equal(t, tt.parallel, plan.Parallel)
		})
	}
}

func TestPlannerReturnsCopies(t *testing.T) {
	p := NewPlanner(nil)

	first := p.Plan(detected(intent.SocialPost))
	first.Agents[0] = "mutated"

	assert.Equal(t, "content_generator", p.Plan(detected(intent.SocialPost)).Agents[0])
}

func TestPlannerRouteWithoutMatchUsesFallback(t *testing.T) {
	table := &RoutingTable{
		Routes: map[string][]Route{
			"only_linkedin": {{WhenPlatforms: []string{"linkedin"}, Agents: []string{"linkedin"}}},
		},
		Fallback: Route{Agents: []string{"content_generator"}},
	}

	plan := NewPlanner(table).Plan(detected("only_linkedin"))

	assert.Equal(t, []string{"content_generator"}, plan.Agents)
}

// =============================================================================
// ROUTING TABLE TESTS
// =============================================================================

func TestDefaultRoutingTableValid(t *testing.T) {
	table := DefaultRoutingTable()

	require.NoError(t, table.Validate())
	assert.Equal(t, []string{"create_content", "create_task", "schedule_meeting", "send_email", "social_post"}, table.IntentNames())
}

func TestParseRoutingTable(t *testing.T) {
	data := []byte(`
routes:
  send_email:
    - when_platforms: [microsoft]
      agents: [outlook_mail]
    - agents: [gmail]
  schedule_meeting:
    - agents: [google_calendar, outlook_calendar]
      parallel: true
fallback:
  agents: [content_generator]
`)

	table, err := ParseRoutingTable(data)
	require.NoError(t, err)

	p := NewPlanner(table)
	assert.Equal(t, []string{"outlook_mail"}, p.Plan(detected(intent.SendEmail, intent.PlatformMicrosoft)).Agents)
	assert.Equal(t, []string{"gmail"}, p.Plan(detected(intent.SendEmail)).Agents)
	assert.True(t, p.Plan(detected(intent.ScheduleMeeting)).Parallel)
}

func TestParseRoutingTableErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed yaml", "routes: [unterminated"},
		{"missing fallback", "routes:\n  x:\n    - agents: [a]\n"},
		{"route without agents", "routes:\n  x:\n    - parallel: true\nfallback:\n  agents: [a]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoutingTable([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestRoutingTableYAMLRoundTrip(t *testing.T) {
	data, err := DefaultRoutingTable().YAML()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadRoutingTable(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRoutingTable(), loaded)
}

func TestLoadRoutingTableMissing(t *testing.T) {
	_, err := LoadRoutingTable(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
