// Package actions composes remote Vikunja calls into the operations the
// bot exposes: create a task from a parsed draft, list active or
// due-today tasks, complete, delete, reschedule. Project and label
// references arrive as human names and get resolved (or implicitly
// created) here before anything is submitted.
package actions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/harrisonrobin/vikabot/pkg/quicktask"
	"github.com/harrisonrobin/vikabot/pkg/session"
	"github.com/harrisonrobin/vikabot/pkg/vikunja"
)

// ErrNoProjects means the account has no projects at all, so a task
// without an explicit +project reference has nowhere to go.
var ErrNoProjects = errors.New("no projects available")

const defaultPriority = 3

// TaskSummary is one task annotated with its project's title for
// display.
type TaskSummary struct {
	Task         vikunja.Task
	ProjectTitle string
}

// Service orchestrates task operations for every chat, sharing one
// session registry. A short-lived per-chat project cache keeps name
// resolution from refetching the project list on every message.
type Service struct {
	registry *session.Registry
	projects *projectCache
}

func NewService(registry *session.Registry) *Service {
	return &Service{
		registry: registry,
		projects: newProjectCache(),
	}
}

// client resolves the chat to an authenticated client. A cached token
// the API has since revoked is invalidated by the call sites via
// unauthorized().
func (s *Service) client(ctx context.Context, chatID string) (*session.Client, error) {
	return s.registry.GetClient(ctx, chatID)
}

// unauthorized drops the chat's cached token when a remote call came
// back 401, so the next attempt re-authenticates instead of replaying a
// dead token.
func (s *Service) unauthorized(chatID string, err error) error {
	if errors.Is(err, vikunja.ErrUnauthorized) {
		s.registry.InvalidateToken(chatID)
	}
	return err
}

// Create resolves the draft's project and label references and submits
// the task. Missing projects and labels are created implicitly. A draft
// without a project reference lands in the account's first project.
func (s *Service) Create(ctx context.Context, chatID string, draft quicktask.Draft) (*vikunja.Task, error) {
	client, err := s.client(ctx, chatID)
	if err != nil {
		return nil, err
	}

	project, err := s.resolveProject(ctx, chatID, client, draft.Project)
	if err != nil {
		return nil, s.unauthorized(chatID, err)
	}

	labelIDs, err := s.resolveLabels(ctx, client, draft.Labels)
	if err != nil {
		return nil, s.unauthorized(chatID, err)
	}

	priority := draft.Priority
	if priority == 0 {
		priority = defaultPriority
	}

	newTask := vikunja.NewTask{
		Title:    draft.Title,
		Priority: priority,
		LabelIDs: labelIDs,
	}
	if !draft.Due.IsZero() {
		newTask.DueDate = endOfDay(draft.Due)
	}

	task, err := client.API.CreateTask(ctx, client.Token, project.ID, newTask)
	if err != nil {
		return nil, s.unauthorized(chatID, err)
	}
	return task, nil
}

// ListActive returns every non-completed task across the chat's
// projects, in the API's own ordering.
func (s *Service) ListActive(ctx context.Context, chatID string) ([]TaskSummary, error) {
	client, err := s.client(ctx, chatID)
	if err != nil {
		return nil, err
	}

	projects, err := s.cachedProjects(ctx, chatID, client)
	if err != nil {
		return nil, s.unauthorized(chatID, err)
	}

	var active []TaskSummary
	for _, project := range projects {
		tasks, err := client.API.ListProjectTasks(ctx, client.Token, project.ID)
		if err != nil {
			return nil, s.unauthorized(chatID, err)
		}
		for _, task := range tasks {
			if task.Done {
				continue
			}
			if task.ProjectID == 0 {
				task.ProjectID = project.ID
			}
			active = append(active, TaskSummary{Task: task, ProjectTitle: project.Title})
		}
	}
	return active, nil
}

// ListDueToday filters the active tasks to those due on the current
// date. The filter is client-side; the tasks endpoint has no due-date
// query parameter worth relying on across Vikunja versions.
func (s *Service) ListDueToday(ctx context.Context, chatID string, now time.Time) ([]TaskSummary, error) {
	active, err := s.ListActive(ctx, chatID)
	if err != nil {
		return nil, err
	}

	year, month, day := now.UTC().Date()
	var due []TaskSummary
	for _, summary := range active {
		if summary.Task.DueDate.IsZero() {
			continue
		}
		y, m, d := summary.Task.DueDate.UTC().Date()
		if y == year && m == month && d == day {
			due = append(due, summary)
		}
	}
	return due, nil
}

// Complete marks a task done. Completing an already-done task is safe;
// Vikunja treats the repeated update as a no-op.
func (s *Service) Complete(ctx context.Context, chatID string, taskID int64) (*vikunja.Task, error) {
	client, err := s.client(ctx, chatID)
	if err != nil {
		return nil, err
	}
	task, err := client.API.CompleteTask(ctx, client.Token, taskID)
	if err != nil {
		return nil, s.unauthorized(chatID, err)
	}
	return task, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, chatID string, taskID int64) error {
	client, err := s.client(ctx, chatID)
	if err != nil {
		return err
	}
	if err := client.API.DeleteTask(ctx, client.Token, taskID); err != nil {
		return s.unauthorized(chatID, err)
	}
	return nil
}

// SetDueDate reschedules a task to end-of-day on the given date.
func (s *Service) SetDueDate(ctx context.Context, chatID string, taskID int64, due time.Time) (*vikunja.Task, error) {
	client, err := s.client(ctx, chatID)
	if err != nil {
		return nil, err
	}
	task, err := client.API.SetTaskDueDate(ctx, client.Token, taskID, endOfDay(due))
	if err != nil {
		return nil, s.unauthorized(chatID, err)
	}
	return task, nil
}

// Projects lists the chat's projects (cached).
func (s *Service) Projects(ctx context.Context, chatID string) ([]vikunja.Project, error) {
	client, err := s.client(ctx, chatID)
	if err != nil {
		return nil, err
	}
	projects, err := s.cachedProjects(ctx, chatID, client)
	if err != nil {
		return nil, s.unauthorized(chatID, err)
	}
	return projects, nil
}

// CheckConnection verifies the chat can reach the API with a live
// session, refreshing the token if needed.
func (s *Service) CheckConnection(ctx context.Context, chatID string) error {
	client, err := s.client(ctx, chatID)
	if err != nil {
		return err
	}
	if _, err := client.API.ListProjects(ctx, client.Token); err != nil {
		return s.unauthorized(chatID, err)
	}
	return nil
}

// resolveProject maps a human project reference to a remote project,
// creating it when absent. An empty reference falls back to the first
// project on the account.
func (s *Service) resolveProject(ctx context.Context, chatID string, client *session.Client, ref string) (*vikunja.Project, error) {
	projects, err := s.cachedProjects(ctx, chatID, client)
	if err != nil {
		return nil, err
	}

	if ref == "" {
		if len(projects) == 0 {
			return nil, ErrNoProjects
		}
		return &projects[0], nil
	}

	for i := range projects {
		if strings.EqualFold(projects[i].Title, ref) {
			return &projects[i], nil
		}
	}

	project, err := client.API.CreateProject(ctx, client.Token, ref)
	if err != nil {
		return nil, err
	}
	s.projects.invalidate(chatID)
	return project, nil
}

// resolveLabels maps label names to remote ids, creating missing ones.
func (s *Service) resolveLabels(ctx context.Context, client *session.Client, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}

	existing, err := client.API.ListLabels(ctx, client.Token)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, found := int64(0), false
		for _, label := range existing {
			if strings.EqualFold(label.Title, name) {
				id, found = label.ID, true
				break
			}
		}
		if !found {
			label, err := client.API.CreateLabel(ctx, client.Token, name)
			if err != nil {
				return nil, err
			}
			id = label.ID
			existing = append(existing, *label)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Service) cachedProjects(ctx context.Context, chatID string, client *session.Client) ([]vikunja.Project, error) {
	if projects, ok := s.projects.get(chatID); ok {
		return projects, nil
	}
	projects, err := client.API.ListProjects(ctx, client.Token)
	if err != nil {
		return nil, err
	}
	s.projects.put(chatID, projects)
	return projects, nil
}

// endOfDay pins a due date to 23:59:59 UTC, matching how the bot has
// always submitted day-granularity dates to Vikunja.
func endOfDay(due time.Time) time.Time {
	year, month, day := due.UTC().Date()
	return time.Date(year, month, day, 23, 59, 59, 0, time.UTC)
}
