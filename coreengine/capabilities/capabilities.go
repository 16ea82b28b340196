// Package capabilities provides local, deterministic capability agents for
// every name in the default routing table. They stand in for the real
// calendar, mail, social and task integrations: no network calls are made,
// created items get fresh ids and timestamps are resolved from the request.
package capabilities

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/agents"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/config"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/envelope"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/intent"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/typeutil"
)

// Registrar is anything agents can be registered with.
type Registrar interface {
	RegisterAgent(name string, agent agents.CapabilityAgent) error
}

// Options configure the local agents.
type Options struct {
	// Now is the clock used to resolve relative dates. Defaults to time.Now.
	Now func() time.Time
	// MeetingLength is the duration of created calendar events. Defaults to 30 minutes.
	MeetingLength time.Duration
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.MeetingLength <= 0 {
		o.MeetingLength = 30 * time.Minute
	}
	return o
}

// All returns one local agent per capability name.
func All(opts Options) map[string]agents.CapabilityAgent {
	opts = opts.withDefaults()
	return map[string]agents.CapabilityAgent{
		config.CapabilityContentGenerator: &ContentGenerator{},
		config.CapabilityGoogleCalendar:   &Calendar{Provider: config.CapabilityGoogleCalendar, opts: opts},
		config.CapabilityOutlookCalendar:  &Calendar{Provider: config.CapabilityOutlookCalendar, opts: opts},
		config.CapabilityGmail:            &Mailer{Provider: config.CapabilityGmail},
		config.CapabilityOutlookMail:      &Mailer{Provider: config.CapabilityOutlookMail},
		config.CapabilityLinkedIn:         &SocialPoster{},
		config.CapabilityTaskManager:      &TaskManager{opts: opts},
	}
}

// RegisterAll registers every local agent with r.
func RegisterAll(r Registrar, opts Options) error {
	for name, agent := range All(opts) {
		if err := r.RegisterAgent(name, agent); err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
	}
	return nil
}

// =============================================================================
// shared helpers
// =============================================================================

// entitiesOf returns the entities the orchestrator attached to env, or
// extracts them from the task when the context has none.
func entitiesOf(env *envelope.Envelope) intent.Entities {
	m := env.Context.Map(envelope.EntitiesKey)
	if m == nil {
		return intent.ExtractEntities(env.Task)
	}
	var e intent.Entities
	e.Dates, _ = typeutil.StringSlice(m["dates"])
	e.Times, _ = typeutil.StringSlice(m["times"])
	e.People, _ = typeutil.StringSlice(m["people"])
	return e
}

// previousContent returns the "content" field left by the preceding agent.
func previousContent(env *envelope.Envelope) (string, map[string]any) {
	prev, ok := env.Context.PreviousResult()
	if !ok {
		return "", nil
	}
	m, ok := typeutil.AsMap(prev)
	if !ok {
		return "", nil
	}
	return typeutil.StringDefault(m["content"], ""), m
}

// summarize shortens s to at most n runes on a word boundary.
func summarize(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)[:n]
	if i := strings.LastIndexByte(string(runes), ' '); i > 0 {
		return strings.TrimSpace(string(runes)[:i]) + "..."
	}
	return string(runes) + "..."
}

func newID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}
