package quicktask

import (
	"testing"
	"time"
)

// A Wednesday, to make weekday arithmetic readable.
var parseNow = time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

func TestParsePlainTextKeepsEverything(t *testing.T) {
	draft := Parse("  Call   John about the   thing ", parseNow)
	if draft.Title != "Call John about the thing" {
		t.Errorf("Expected whitespace-normalized title, got %q", draft.Title)
	}
	if draft.Priority != 0 || draft.Project != "" || len(draft.Labels) != 0 || !draft.Due.IsZero() {
		t.Errorf("Expected no optional fields set, got %+v", draft)
	}
}

func TestParseProject(t *testing.T) {
	draft := Parse("Call John +Work", parseNow)
	if draft.Title != "Call John" {
		t.Errorf("Expected title 'Call John', got %q", draft.Title)
	}
	if draft.Project != "Work" {
		t.Errorf("Expected project 'Work', got %q", draft.Project)
	}
	if draft.Priority != 0 || len(draft.Labels) != 0 {
		t.Errorf("Expected no priority or labels, got %+v", draft)
	}
}

func TestParseQuotedProject(t *testing.T) {
	draft := Parse(`Plan sprint +"Deep Work"`, parseNow)
	if draft.Project != "Deep Work" {
		t.Errorf("Expected project 'Deep Work', got %q", draft.Project)
	}
	if draft.Title != "Plan sprint" {
		t.Errorf("Expected title 'Plan sprint', got %q", draft.Title)
	}
}

func TestParseProjectKeepsTrailingPunctuation(t *testing.T) {
	// The contiguous run after '+' is the value; no fuzzy trimming.
	draft := Parse("File expenses +Work,", parseNow)
	if draft.Project != "Work," {
		t.Errorf("Expected project 'Work,', got %q", draft.Project)
	}
}

func TestParsePriority(t *testing.T) {
	draft := Parse("Finish report !5", parseNow)
	if draft.Title != "Finish report" {
		t.Errorf("Expected title 'Finish report', got %q", draft.Title)
	}
	if draft.Priority != 5 {
		t.Errorf("Expected priority 5, got %d", draft.Priority)
	}
}

func TestParsePriorityClamps(t *testing.T) {
	for input, want := range map[string]int{"x !0": 1, "x !9": 5, "x !1": 1, "x !3": 3} {
		draft := Parse(input, parseNow)
		if draft.Priority != want {
			t.Errorf("Parse(%q): expected priority %d, got %d", input, want, draft.Priority)
		}
	}
}

func TestParseLabelsCollapseDuplicates(t *testing.T) {
	draft := Parse("do it *a *b *a", parseNow)
	if len(draft.Labels) != 2 || draft.Labels[0] != "a" || draft.Labels[1] != "b" {
		t.Errorf("Expected labels [a b], got %v", draft.Labels)
	}
	if draft.Title != "do it" {
		t.Errorf("Expected title 'do it', got %q", draft.Title)
	}
}

func TestParseTomorrowAloneFallsBackToRawTitle(t *testing.T) {
	draft := Parse("tomorrow", parseNow)
	if draft.Title != "tomorrow" {
		t.Errorf("Expected raw-text fallback title 'tomorrow', got %q", draft.Title)
	}
	want := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	if !draft.Due.Equal(want) {
		t.Errorf("Expected due %v, got %v", want, draft.Due)
	}
}

func TestParseOnlyTokensFallsBackToRawTitle(t *testing.T) {
	draft := Parse("!2 +Home *chore", parseNow)
	if draft.Title != "!2 +Home *chore" {
		t.Errorf("Expected raw fallback title, got %q", draft.Title)
	}
	if draft.Priority != 2 || draft.Project != "Home" || len(draft.Labels) != 1 {
		t.Errorf("Expected tokens still extracted, got %+v", draft)
	}
}

func TestParseCombined(t *testing.T) {
	draft := Parse("Buy milk tomorrow +Groceries !4 *errand", parseNow)
	if draft.Title != "Buy milk" {
		t.Errorf("Expected title 'Buy milk', got %q", draft.Title)
	}
	if draft.Project != "Groceries" || draft.Priority != 4 {
		t.Errorf("Unexpected project/priority: %+v", draft)
	}
	if len(draft.Labels) != 1 || draft.Labels[0] != "errand" {
		t.Errorf("Expected label errand, got %v", draft.Labels)
	}
	if draft.Due.IsZero() {
		t.Error("Expected a due date")
	}
}

func TestReparsingCleanedTitleExtractsNothing(t *testing.T) {
	first := Parse("Ship release !3 +Work *release tomorrow", parseNow)
	second := Parse(first.Title, parseNow)
	if second.Title != first.Title {
		t.Errorf("Re-parse changed title: %q -> %q", first.Title, second.Title)
	}
	if second.Priority != 0 || second.Project != "" || len(second.Labels) != 0 || !second.Due.IsZero() {
		t.Errorf("Re-parse extracted residual tokens: %+v", second)
	}
}
