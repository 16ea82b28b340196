package capabilities

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/intent"
)

// DefaultHour is used when a request names a day but no time.
const DefaultHour = 9

var (
	clockPattern   = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(?:([ap])\.?m\.?)?$`)
	numericPattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?$`)
	isoPattern     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ResolveStart turns the first date and time entities into an absolute time
// in now's location.
//
// Without a date or time the result is the next full hour. A time without a
// date is today, or tomorrow when that time has already passed. A date
// without a time is at DefaultHour, or the next full hour when that has
// already passed.
func ResolveStart(now time.Time, e intent.Entities) time.Time {
	day, dayKnown := time.Time{}, false
	for _, d := range e.Dates {
		if resolved, ok := ResolveDate(now, d); ok {
			day, dayKnown = resolved, true
			break
		}
	}

	hour, minute, timeKnown := DefaultHour, 0, false
	for _, t := range e.Times {
		if h, m, ok := ParseClock(t); ok {
			hour, minute, timeKnown = h, m, true
			break
		}
	}

	switch {
	case !dayKnown && !timeKnown:
		return now.Truncate(time.Hour).Add(time.Hour)
	case !dayKnown:
		t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if t.Before(now) {
			t = t.AddDate(0, 0, 1)
		}
		return t
	default:
		t := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
		if !timeKnown && t.Before(now) {
			return now.Truncate(time.Hour).Add(time.Hour)
		}
		return t
	}
}

// ResolveDate resolves one date token relative to now. Only the calendar
// day of the result is meaningful.
func ResolveDate(now time.Time, token string) (time.Time, bool) {
	token = strings.ToLower(strings.Join(strings.Fields(token), " "))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch token {
	case "today":
		return today, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	case "next week":
		return today.AddDate(0, 0, 7), true
	}

	if wd, ok := weekdays[token]; ok {
		ahead := (int(wd) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead), true
	}

	if m := isoPattern.FindStringSubmatch(token); m != nil {
		y, _ := strconv.Atoi(m[1])
		return calendarDate(y, m[2], m[3], now.Location())
	}

	if m := numericPattern.FindStringSubmatch(token); m != nil {
		if m[3] == "" {
			d, ok := calendarDate(today.Year(), m[1], m[2], now.Location())
			if ok && d.Before(today) {
				d = d.AddDate(1, 0, 0)
			}
			return d, ok
		}
		y, _ := strconv.Atoi(m[3])
		if y < 100 {
			y += 2000
		}
		return calendarDate(y, m[1], m[2], now.Location())
	}

	return time.Time{}, false
}

// ParseClock parses "H:MM" with an optional am/pm suffix into a 24-hour time.
func ParseClock(token string) (hour, minute int, ok bool) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if minute > 59 {
		return 0, 0, false
	}

	switch strings.ToLower(m[3]) {
	case "a":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "p":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, 0, false
		}
	}
	return hour, minute, true
}

func calendarDate(year int, month, day string, loc *time.Location) (time.Time, bool) {
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(mo), d, 0, 0, 0, 0, loc)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
