package intent

import (
	"regexp"
	"strings"
)

var (
	// datePattern matches weekday names, relative days and numeric dates.
	// ISO dates come first so 2026-10-19 is not split into a shorter match.
	datePattern = regexp.MustCompile(`(?i)\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|today|tomorrow|next\s+week|\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?)\b`)
	// timePattern matches "H:MM" with an optional am/pm suffix.
	timePattern = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}(?:\s*[ap]\.?m\.?)?`)
	// personPattern matches two capitalized words, e.g. "Jane Doe".
	personPattern = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)
)

// platformKeyword ties a keyword pattern to its platform family.
type platformKeyword struct {
	platform Platform
	pattern  *regexp.Regexp
}

// platformKeywords are checked in this order, which is also the order of
// Intent.Platforms.
var platformKeywords = []platformKeyword{
	{PlatformGoogle, regexp.MustCompile(`(?i)\b(?:google|gmail|gcal|g\s?suite|calendar\s+suite)\b`)},
	{PlatformMicrosoft, regexp.MustCompile(`(?i)\b(?:outlook|microsoft|office\s?365|o365|(?:ms\s+)?teams|productivity\s+suite)\b`)},
	{PlatformLinkedIn, regexp.MustCompile(`(?i)\b(?:linkedin|professional\s+network)\b`)},
}

// ExtractEntities pulls date, time and person tokens out of text.
func ExtractEntities(text string) Entities {
	return Entities{
		Dates:  findAll(datePattern, text),
		Times:  findAll(timePattern, text),
		People: findAll(personPattern, text),
	}
}

// DetectPlatforms returns each platform family mentioned in text, once, in a fixed order.
func DetectPlatforms(text string) []Platform {
	platforms := []Platform{}
	for _, kw := range platformKeywords {
		if kw.pattern.MatchString(text) {
			platforms = append(platforms, kw.platform)
		}
	}
	return platforms
}

func findAll(re *regexp.Regexp, text string) []string {
	matches := re.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m))
	}
	return out
}
