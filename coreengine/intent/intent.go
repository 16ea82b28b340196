// Package intent classifies free-text requests into intents with extracted
// entities, detected platforms and a complexity rating.
//
// Classification is deterministic pattern matching: an ordered rule list is
// evaluated top to bottom and the first match wins.
package intent

// Intent names produced by the default rules.
const (
	ScheduleMeeting = "schedule_meeting"
	SendEmail       = "send_email"
	SocialPost      = "social_post"
	CreateTask      = "create_task"
	CreateContent   = "create_content"
	GeneralQuery    = "general_query"
)

// DefaultConfidence is reported when no rule matches.
const DefaultConfidence = 0.5

// Platform is an external platform family mentioned in a request.
type Platform string

const (
	// PlatformGoogle is the calendar suite (Google Calendar, Gmail).
	PlatformGoogle Platform = "google"
	// PlatformMicrosoft is the productivity suite (Outlook, Office 365).
	PlatformMicrosoft Platform = "microsoft"
	// PlatformLinkedIn is the professional network.
	PlatformLinkedIn Platform = "linkedin"
)

// Complexity is the coarse effort rating of a request.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Entities holds the tokens extracted from a request.
type Entities struct {
	Dates  []string `json:"dates"`
	Times  []string `json:"times"`
	People []string `json:"people"`
}

// HasTemporal reports whether any date or time token was found.
func (e Entities) HasTemporal() bool {
	return len(e.Dates) > 0 || len(e.Times) > 0
}

// Intent is the classifier verdict for one request.
type Intent struct {
	Name       string     `json:"name"`
	Entities   Entities   `json:"entities"`
	Confidence float64    `json:"confidence"`
	Platforms  []Platform `json:"platforms"`
	Complexity Complexity `json:"complexity"`
}

// HasPlatform reports whether p was detected.
func (i Intent) HasPlatform(p Platform) bool {
	for _, got := range i.Platforms {
		if got == p {
			return true
		}
	}
	return false
}

// PlatformNames returns the detected platforms as strings.
func (i Intent) PlatformNames() []string {
	names := make([]string, len(i.Platforms))
	for idx, p := range i.Platforms {
		names[idx] = string(p)
	}
	return names
}

// complexIntents are structurally complex and add one point to the score.
var complexIntents = map[string]bool{
	ScheduleMeeting: true,
	CreateContent:   true,
}

// ScoreComplexity rates a request from its intent name, entities and platforms.
//
// +2 for more than one platform, +1 for more than two people, +1 for a
// complex intent, +1 for any date or time. 3 or more is high, 1 or more medium.
func ScoreComplexity(name string, entities Entities, platforms []Platform) Complexity {
	score := 0
	if len(platforms) > 1 {
		score += 2
	}
	if len(entities.People) > 2 {
		score++
	}
	if complexIntents[name] {
		score++
	}
	if entities.HasTemporal() {
		score++
	}

	switch {
	case score >= 3:
		return ComplexityHigh
	case score >= 1:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}
