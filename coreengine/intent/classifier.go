package intent

import (
	"fmt"
	"regexp"
)

// Rule maps a pattern to an intent name and confidence weight.
type Rule struct {
	Pattern *regexp.Regexp
	Intent  string
	Weight  float64
}

// DefaultRules returns the built-in ordered rule list. Earlier rules win.
func DefaultRules() []Rule {
	return []Rule{
		{
			Pattern: regexp.MustCompile(`(?i)\b(?:schedule|book|set\s+up|arrange|organi[sz]e)\b.*\b(?:meetings?|calls?|appointments?|events?|syncs?)\b`),
			Intent:  ScheduleMeeting,
			Weight:  0.9,
		},
		{
			Pattern: regexp.MustCompile(`(?i)\b(?:send|write|draft|compose|reply|forward)\b.*\b(?:e-?mails?|mail)\b`),
			Intent:  SendEmail,
			Weight:  0.85,
		},
		{
			Pattern: regexp.MustCompile(`(?i)\b(?:post|share|publish)\b.*\blinkedin\b|\blinkedin\b.*\b(?:posts?|updates?|articles?)\b`),
			Intent:  SocialPost,
			Weight:  0.85,
		},
		{
			Pattern: regexp.MustCompile(`(?i)\b(?:create|add|make|remind)\b.*\b(?:tasks?|todos?|to-dos?|reminders?)\b`),
			Intent:  CreateTask,
			Weight:  0.8,
		},
		{
			Pattern: regexp.MustCompile(`(?i)\b(?:write|create|generate|draft)\b.*\b(?:posts?|articles?|blogs?|content|summary|summaries|announcements?)\b`),
			Intent:  CreateContent,
			Weight:  0.75,
		},
		{
			Pattern: regexp.MustCompile(`(?i)\b(?:meet|meeting)\b.*\bwith\b`),
			Intent:  ScheduleMeeting,
			Weight:  0.7,
		},
	}
}

// Classifier turns request text into an Intent.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a Classifier using DefaultRules.
func NewClassifier() *Classifier {
	return &Classifier{rules: DefaultRules()}
}

// NewClassifierWithRules creates a Classifier with a custom ordered rule list.
func NewClassifierWithRules(rules []Rule) (*Classifier, error) {
	for i, r := range rules {
		if r.Pattern == nil {
			return nil, fmt.Errorf("rule %d: pattern is required", i)
		}
		if r.Intent == "" {
			return nil, fmt.Errorf("rule %d: intent is required", i)
		}
		if r.Weight < 0 || r.Weight > 1 {
			return nil, fmt.Errorf("rule %d: weight %v outside [0,1]", i, r.Weight)
		}
	}
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Classifier{rules: copied}, nil
}

// Classify returns the best-effort Intent for text. It never fails; text
// matching no rule is a general_query with confidence 0.5.
func (c *Classifier) Classify(text string) Intent {
	name, confidence := GeneralQuery, DefaultConfidence
	for _, r := range c.rules {
		if r.Pattern.MatchString(text) {
			name, confidence = r.Intent, r.Weight
			break
		}
	}

	entities := ExtractEntities(text)
	platforms := DetectPlatforms(text)

	return Intent{
		Name:       name,
		Entities:   entities,
		Confidence: confidence,
		Platforms:  platforms,
		Complexity: ScoreComplexity(name, entities, platforms),
	}
}
