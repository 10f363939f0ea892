// Package quicktask turns free-form chat text into a structured task
// draft using Vikunja's quick-add syntax: "!3" priority, "+project",
// "*label" and a small vocabulary of natural-language date phrases.
// Parsing never fails; anything it does not recognize stays in the
// title untouched.
package quicktask

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Draft is a parsed-but-unresolved task. Zero values mean "not given":
// Priority 0, Due the zero time, Project "" and an empty label set.
type Draft struct {
	Title    string
	Due      time.Time
	Priority int
	Project  string
	Labels   []string
}

var (
	// Values may be bare words or quoted to allow spaces: +Work,
	// +"Deep Work", *'next actions'. For bare words the contiguous
	// non-whitespace run is consumed, so trailing punctuation stays
	// part of the value (`+Work,` yields project "Work,"). That is
	// deliberate: predictable beats fuzzy here.
	labelPattern    = regexp.MustCompile(`\*(?:"([^"]+)"|'([^']+)'|(\S+))`)
	projectPattern  = regexp.MustCompile(`\+(?:"([^"]+)"|'([^']+)'|(\S+))`)
	priorityPattern = regexp.MustCompile(`!(\d+)`)
)

// Parse extracts every recognized token from text and returns the draft.
// Date phrases resolve relative to now. The title is the leftover text
// with whitespace collapsed; if nothing is left over, the whole
// (normalized) input becomes the title so no message is silently
// dropped.
func Parse(text string, now time.Time) Draft {
	raw := normalize(text)
	draft := Draft{}
	rest := text

	// Labels: every *token accumulates, duplicates collapse.
	for _, match := range labelPattern.FindAllStringSubmatch(rest, -1) {
		draft.Labels = appendUnique(draft.Labels, firstGroup(match))
	}
	rest = labelPattern.ReplaceAllString(rest, "")

	// Priority: first !N wins, out-of-range values clamp to 1..5.
	if match := priorityPattern.FindStringSubmatchIndex(rest); match != nil {
		n, err := strconv.Atoi(rest[match[2]:match[3]])
		if err == nil {
			draft.Priority = clampPriority(n)
			rest = rest[:match[0]] + rest[match[1]:]
		}
	}

	// Project: a single +reference.
	if match := projectPattern.FindStringSubmatch(rest); match != nil {
		draft.Project = firstGroup(match)
		rest = strings.Replace(rest, match[0], "", 1)
	}

	if due, remainder, ok := extractDate(rest, now); ok {
		draft.Due = due
		rest = remainder
	}

	draft.Title = normalize(rest)
	if draft.Title == "" {
		draft.Title = raw
	}
	return draft
}

func clampPriority(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

// normalize trims and collapses internal whitespace runs to one space.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func appendUnique(labels []string, label string) []string {
	for _, existing := range labels {
		if existing == label {
			return labels
		}
	}
	return append(labels, label)
}

// firstGroup returns the first non-empty capture of a quoted-or-bare
// token match.
func firstGroup(match []string) string {
	for _, group := range match[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}
