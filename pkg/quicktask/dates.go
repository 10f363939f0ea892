package quicktask

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateRule resolves one date phrase. resolve returns the zero time when
// the matched text is not an actual calendar date (e.g. 31/02/2025), in
// which case the phrase stays in the title.
type dateRule struct {
	pattern *regexp.Regexp
	resolve func(match []string, now time.Time) time.Time
}

// dateRules is deliberately a table rather than hard-coded branches so
// the vocabulary can grow without touching the extraction loop. Order
// matters only where one phrase contains another ("next monday" before
// bare "monday").
var dateRules = []dateRule{
	{
		pattern: regexp.MustCompile(`(?i)\btoday\b`),
		resolve: func(_ []string, now time.Time) time.Time { return dateOf(now) },
	},
	{
		pattern: regexp.MustCompile(`(?i)\btomorrow\b`),
		resolve: func(_ []string, now time.Time) time.Time { return dateOf(now).AddDate(0, 0, 1) },
	},
	{
		pattern: regexp.MustCompile(`(?i)\bnext (monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		resolve: func(match []string, now time.Time) time.Time { return nextWeekday(now, match[1]) },
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		resolve: func(match []string, now time.Time) time.Time { return nextWeekday(now, match[1]) },
	},
	{
		pattern: regexp.MustCompile(`(?i)\bin (\d+) days?\b`),
		resolve: func(match []string, now time.Time) time.Time {
			n, _ := strconv.Atoi(match[1])
			return dateOf(now).AddDate(0, 0, n)
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\bin (\d+) weeks?\b`),
		resolve: func(match []string, now time.Time) time.Time {
			n, _ := strconv.Atoi(match[1])
			return dateOf(now).AddDate(0, 0, 7*n)
		},
	},
	{
		pattern: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
		resolve: func(match []string, _ time.Time) time.Time {
			day, _ := strconv.Atoi(match[1])
			month, _ := strconv.Atoi(match[2])
			year, _ := strconv.Atoi(match[3])
			return calendarDate(year, month, day)
		},
	},
	{
		pattern: regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
		resolve: func(match []string, _ time.Time) time.Time {
			year, _ := strconv.Atoi(match[1])
			month, _ := strconv.Atoi(match[2])
			day, _ := strconv.Atoi(match[3])
			return calendarDate(year, month, day)
		},
	},
}

// extractDate finds the first resolvable date phrase in text, removes it
// and returns the due date plus the remaining text. Only one date phrase
// is consumed per message.
func extractDate(text string, now time.Time) (time.Time, string, bool) {
	for _, rule := range dateRules {
		match := rule.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		due := rule.resolve(match, now)
		if due.IsZero() {
			// Date-shaped but not a real date; leave it in the title.
			continue
		}
		remainder := strings.Replace(text, match[0], "", 1)
		return due, remainder, true
	}
	return time.Time{}, text, false
}

// ResolveDate parses text consisting solely of a date phrase, as used
// when updating a task's due date.
func ResolveDate(text string, now time.Time) (time.Time, bool) {
	due, remainder, ok := extractDate(text, now)
	if !ok || normalize(remainder) != "" {
		return time.Time{}, false
	}
	return due, true
}

// dateOf truncates a timestamp to its calendar date in UTC.
func dateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// calendarDate builds a date and rejects values time.Date would silently
// normalize, like day 31 of a 30-day month.
func calendarDate(year, month, day int) time.Time {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}
	}
	return t
}

func nextWeekday(now time.Time, name string) time.Time {
	target, ok := weekdays[strings.ToLower(name)]
	if !ok {
		return time.Time{}
	}
	ahead := int(target) - int(now.Weekday())
	if ahead <= 0 {
		ahead += 7
	}
	return dateOf(now).AddDate(0, 0, ahead)
}

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}
