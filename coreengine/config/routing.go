package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/intent"
	"gopkg.in/yaml.v3"
)

// Capability names used by the default routing table.
const (
	CapabilityContentGenerator = "content_generator"
	CapabilityGoogleCalendar   = "google_calendar"
	CapabilityOutlookCalendar  = "outlook_calendar"
	CapabilityGmail            = "gmail"
	CapabilityOutlookMail      = "outlook_mail"
	CapabilityLinkedIn         = "linkedin"
	CapabilityTaskManager      = "task_manager"
)

// Route is one candidate plan for an intent. It applies when every platform
// in WhenPlatforms was detected; an empty WhenPlatforms always applies.
type Route struct {
	WhenPlatforms []string `yaml:"when_platforms,omitempty" json:"when_platforms,omitempty"`
	Agents        []string `yaml:"agents" json:"agents"`
	Parallel      bool     `yaml:"parallel,omitempty" json:"parallel,omitempty"`
}

// Matches reports whether every required platform is present in detected.
func (r Route) Matches(detected intent.Intent) bool {
	for _, p := range r.WhenPlatforms {
		if !detected.HasPlatform(intent.Platform(p)) {
			return false
		}
	}
	return true
}

// RoutingTable maps intent names to ordered candidate routes.
// The first matching route wins; intents without a matching route use Fallback.
type RoutingTable struct {
	Routes   map[string][]Route `yaml:"routes" json:"routes"`
	Fallback Route              `yaml:"fallback" json:"fallback"`
}

// DefaultRoutingTable returns the built-in routing table.
func DefaultRoutingTable() *RoutingTable {
	return &RoutingTable{
		Routes: map[string][]Route{
			intent.ScheduleMeeting: {
				{
					WhenPlatforms: []string{string(intent.PlatformGoogle), string(intent.PlatformMicrosoft)},
					Agents:        []string{CapabilityGoogleCalendar, CapabilityOutlookCalendar},
					Parallel:      true,
				},
				{WhenPlatforms: []string{string(intent.PlatformMicrosoft)}, Agents: []string{CapabilityOutlookCalendar}},
				{WhenPlatforms: []string{string(intent.PlatformGoogle)}, Agents: []string{CapabilityGoogleCalendar}},
				{Agents: []string{CapabilityGoogleCalendar}},
			},
			intent.SendEmail: {
				{WhenPlatforms: []string{string(intent.PlatformGoogle)}, Agents: []string{CapabilityContentGenerator, CapabilityGmail}},
				{WhenPlatforms: []string{string(intent.PlatformMicrosoft)}, Agents: []string{CapabilityContentGenerator, CapabilityOutlookMail}},
				{Agents: []string{CapabilityContentGenerator, CapabilityGmail}},
			},
			intent.SocialPost: {
				{Agents: []string{CapabilityContentGenerator, CapabilityLinkedIn}},
			},
			intent.CreateTask: {
				{Agents: []string{CapabilityTaskManager}},
			},
			intent.CreateContent: {
				{Agents: []string{CapabilityContentGenerator}},
			},
		},
		Fallback: Route{Agents: []string{CapabilityContentGenerator}},
	}
}

// Validate checks that every route names at least one agent.
func (t *RoutingTable) Validate() error {
	var errs []error
	if len(t.Fallback.Agents) == 0 {
		errs = append(errs, errors.New("fallback route has no agents"))
	}
	for _, name := range t.IntentNames() {
		for i, r := range t.Routes[name] {
			if len(r.Agents) == 0 {
				errs = append(errs, fmt.Errorf("route %s[%d] has no agents", name, i))
			}
			for _, a := range r.Agents {
				if a == "" {
					errs = append(errs, fmt.Errorf("route %s[%d] has an empty agent name", name, i))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// IntentNames returns the routed intent names in sorted order.
func (t *RoutingTable) IntentNames() []string {
	names := make([]string, 0, len(t.Routes))
	for name := range t.Routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseRoutingTable decodes and validates a YAML routing table.
func ParseRoutingTable(data []byte) (*RoutingTable, error) {
	table := &RoutingTable{}
	if err := yaml.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("parsing routing table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid routing table: %w", err)
	}
	return table, nil
}

// LoadRoutingTable reads a YAML routing table from path.
func LoadRoutingTable(path string) (*RoutingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading routing table %s: %w", path, err)
	}
	return ParseRoutingTable(data)
}

// YAML encodes the table in the format ParseRoutingTable reads.
func (t *RoutingTable) YAML() ([]byte, error) {
	return yaml.Marshal(t)
}
