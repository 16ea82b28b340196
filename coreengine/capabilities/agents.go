package capabilities

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/config"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/envelope"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/intent"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/typeutil"
)

var topicPattern = regexp.MustCompile(`(?i)\b(?:about|regarding|on the topic of)\s+(.+)$`)

// topicOf returns the subject of a request: the text after "about" or
// "regarding", or the whole task.
func topicOf(task string) string {
	task = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(task), ".!?"))
	if m := topicPattern.FindStringSubmatch(task); m != nil {
		return strings.TrimSpace(m[1])
	}
	return task
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// =============================================================================
// CONTENT GENERATOR
// =============================================================================

// ContentGenerator drafts text for the request's intent. Its "content" field
// is chained into mail and social agents.
type ContentGenerator struct{}

// Process implements agents.CapabilityAgent.
func (g *ContentGenerator) Process(ctx context.Context, env *envelope.Envelope) *envelope.Response {
	name := config.CapabilityContentGenerator
	if strings.TrimSpace(env.Task) == "" {
		return envelope.Failure(name, "nothing to write about")
	}

	topic := topicOf(env.Task)
	subject := capitalize(summarize(topic, 60))

	var content string
	switch env.Context.String(envelope.IntentKey) {
	case intent.SendEmail:
		content = fmt.Sprintf("Hello,\n\nI wanted to reach out regarding %s.\n\nBest regards", topic)
	case intent.SocialPost:
		content = fmt.Sprintf("Excited to share an update on %s.", topic)
	case intent.CreateContent:
		content = fmt.Sprintf("%s\n\nA short piece on %s.", subject, topic)
	default:
		content = fmt.Sprintf("Here is a summary of your request: %s.", topic)
	}

	return envelope.Success(name, map[string]any{
		"content":    content,
		"subject":    subject,
		"word_count": len(strings.Fields(content)),
	})
}

// =============================================================================
// CALENDAR
// =============================================================================

// Calendar creates an event on one calendar provider.
type Calendar struct {
	Provider string
	opts     Options
}

// Process implements agents.CapabilityAgent.
func (c *Calendar) Process(ctx context.Context, env *envelope.Envelope) *envelope.Response {
	opts := c.opts.withDefaults()
	ents := entitiesOf(env)
	start := ResolveStart(opts.Now(), ents)

	title := summarize(topicOf(env.Task), 80)
	if len(ents.People) > 0 {
		title = "Meeting with " + strings.Join(ents.People, ", ")
	}

	attendees := ents.People
	if attendees == nil {
		attendees = []string{}
	}

	return envelope.Success(c.Provider, map[string]any{
		"event_id":   newID("evt"),
		"provider":   c.Provider,
		"title":      title,
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(opts.MeetingLength).Format(time.RFC3339),
		"attendees":  attendees,
		"status":     "confirmed",
	})
}

// =============================================================================
// MAIL
// =============================================================================

// Mailer sends the drafted content through one mail provider.
type Mailer struct {
	Provider string
}

// Process implements agents.CapabilityAgent.
func (m *Mailer) Process(ctx context.Context, env *envelope.Envelope) *envelope.Response {
	body, draft := previousContent(env)
	if body == "" {
		body = strings.TrimSpace(env.Task)
	}
	if body == "" {
		return envelope.Failure(m.Provider, "no message body to send")
	}

	subject := typeutil.StringDefault(draft["subject"], "")
	if subject == "" {
		subject = capitalize(summarize(topicOf(env.Task), 60))
	}

	recipients := entitiesOf(env).People
	if recipients == nil {
		recipients = []string{}
	}

	return envelope.Success(m.Provider, map[string]any{
		"message_id": newID("msg"),
		"provider":   m.Provider,
		"to":         recipients,
		"subject":    subject,
		"content":    body,
		"status":     "sent",
	})
}

// =============================================================================
// SOCIAL
// =============================================================================

// SocialPoster publishes the drafted content to the professional network.
type SocialPoster struct{}

// Process implements agents.CapabilityAgent.
func (s *SocialPoster) Process(ctx context.Context, env *envelope.Envelope) *envelope.Response {
	name := config.CapabilityLinkedIn
	content, _ := previousContent(env)
	if content == "" {
		return envelope.Failure(name, "no drafted content to publish")
	}

	return envelope.Success(name, map[string]any{
		"post_id":    newID("post"),
		"platform":   name,
		"content":    content,
		"visibility": "public",
		"status":     "published",
	})
}

// =============================================================================
// TASKS
// =============================================================================

// TaskManager records a task, with a due date when the request names one.
type TaskManager struct {
	opts Options
}

// Process implements agents.CapabilityAgent.
func (t *TaskManager) Process(ctx context.Context, env *envelope.Envelope) *envelope.Response {
	name := config.CapabilityTaskManager
	title := capitalize(summarize(strings.TrimSpace(env.Task), 200))
	if title == "" {
		return envelope.Failure(name, "task title is empty")
	}

	data := map[string]any{
		"task_id": newID("task"),
		"title":   title,
		"status":  "open",
	}

	ents := entitiesOf(env)
	if ents.HasTemporal() {
		due := ResolveStart(t.opts.withDefaults().Now(), ents)
		data["due_date"] = due.Format("2006-01-02")
	}
	if p := env.Priority; p.IsValid() {
		data["priority"] = string(p)
	}

	return envelope.Success(name, data)
}
