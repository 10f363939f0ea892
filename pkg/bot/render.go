package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrisonrobin/vikabot/pkg/actions"
	"github.com/harrisonrobin/vikabot/pkg/vikunja"
)

const (
	tasksPerPage = 5
	// Keeps replies under chat transports' message size limits.
	maxReplyChars = 3800
)

// quickList renders the first few active tasks with mark-done actions,
// shown after a task is created or completed. Returns nil when the
// list could not be fetched; the primary reply still stands alone.
func (d *Dispatcher) quickList(ctx context.Context, chatID string) *Reply {
	active, err := d.tasks.ListActive(ctx, chatID)
	if err != nil {
		return nil
	}
	if len(active) == 0 {
		return &Reply{Text: "No active tasks!"}
	}

	shown := active
	if len(shown) > tasksPerPage {
		shown = shown[:tasksPerPage]
	}

	var b strings.Builder
	b.WriteString("Your active tasks:\n")
	reply := &Reply{}
	for i, summary := range shown {
		writeTaskLine(&b, i+1, summary)
		reply.Actions = append(reply.Actions, Action{
			Label: fmt.Sprintf("Mark #%d done", i+1),
			Token: fmt.Sprintf("done:%d", summary.Task.ID),
		})
	}
	if len(active) > tasksPerPage {
		fmt.Fprintf(&b, "...and %d more tasks\n", len(active)-tasksPerPage)
		reply.Actions = append(reply.Actions, Action{Label: "View all tasks", Token: "all"})
	}
	reply.Text = truncateReply(b.String())
	return reply
}

// taskList renders one page of the full active-task view.
func (d *Dispatcher) taskList(ctx context.Context, chatID string, page int) Reply {
	active, err := d.tasks.ListActive(ctx, chatID)
	if err != nil {
		return Reply{Text: d.errorText(err)}
	}
	if len(active) == 0 {
		return Reply{Text: "No active tasks found!"}
	}

	totalPages := (len(active) + tasksPerPage - 1) / tasksPerPage
	if page >= totalPages {
		page = totalPages - 1
	}
	offset := page * tasksPerPage
	shown := active[offset:min(offset+tasksPerPage, len(active))]

	var b strings.Builder
	fmt.Fprintf(&b, "Tasks (page %d/%d):\n", page+1, totalPages)
	reply := Reply{}
	for i, summary := range shown {
		writeTaskLine(&b, offset+i+1, summary)
		reply.Actions = append(reply.Actions,
			Action{
				Label: fmt.Sprintf("Mark #%d done", offset+i+1),
				Token: fmt.Sprintf("done:%d", summary.Task.ID),
			},
			Action{
				Label: fmt.Sprintf("Delete #%d", offset+i+1),
				Token: fmt.Sprintf("delete:%d", summary.Task.ID),
			})
	}
	if page > 0 {
		reply.Actions = append(reply.Actions, Action{Label: "Prev", Token: fmt.Sprintf("page:%d", page-1)})
	}
	if page < totalPages-1 {
		reply.Actions = append(reply.Actions, Action{Label: "Next", Token: fmt.Sprintf("page:%d", page+1)})
	}
	reply.Text = truncateReply(b.String())
	return reply
}

// writeTaskLine prints one task. The remote task id is shown so /due
// and transport-side commands can reference it.
func writeTaskLine(b *strings.Builder, n int, summary actions.TaskSummary) {
	fmt.Fprintf(b, "%d. %s  (id %d)\n", n, summary.Task.Title, summary.Task.ID)
	if summary.Task.DueDate.IsZero() {
		fmt.Fprintf(b, "   %s\n", summary.ProjectTitle)
	} else {
		fmt.Fprintf(b, "   %s | due %s\n", summary.ProjectTitle, summary.Task.DueDate.UTC().Format("2006-01-02"))
	}
}

func renderDueToday(due []actions.TaskSummary) string {
	var b strings.Builder
	b.WriteString("Tasks due today:\n")
	for _, summary := range due {
		fmt.Fprintf(&b, "- %s (in %s)\n", summary.Task.Title, summary.ProjectTitle)
	}
	return truncateReply(b.String())
}

func renderProjects(projects []vikunja.Project) string {
	var b strings.Builder
	b.WriteString("Your projects:\n")
	for _, project := range projects {
		fmt.Fprintf(&b, "- %s\n", project.Title)
	}
	return truncateReply(b.String())
}

// truncateReply caps a reply at maxReplyChars runes, marking the cut.
func truncateReply(s string) string {
	s = strings.TrimRight(s, "\n")
	runes := []rune(s)
	if len(runes) <= maxReplyChars {
		return s
	}
	suffix := "\n… (truncated)"
	limit := maxReplyChars - len([]rune(suffix))
	return string(runes[:limit]) + suffix
}
