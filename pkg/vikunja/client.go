package vikunja

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client talks to a Vikunja instance's REST API. It is stateless: the
// bearer token for each call is supplied by the caller, so one Client is
// shared between every authenticated user of the bot.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. "https://vikunja.example.com/api/v1").
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Authenticate exchanges a username and password for a JWT.
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", "", body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login response contained no token")
	}
	return resp.Token, nil
}

// ListProjects returns every project the token's user can see.
func (c *Client) ListProjects(ctx context.Context, token string) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, "/projects", token, nil, &projects); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// CreateProject creates a project with the given title.
func (c *Client) CreateProject(ctx context.Context, token, title string) (*Project, error) {
	var project Project
	if err := c.do(ctx, http.MethodPut, "/projects", token, map[string]string{"title": title}, &project); err != nil {
		return nil, fmt.Errorf("creating project %q: %w", title, err)
	}
	return &project, nil
}

// ListProjectTasks returns the tasks of one project, completed ones included.
func (c *Client) ListProjectTasks(ctx context.Context, token string, projectID int64) ([]Task, error) {
	var tasks []Task
	path := fmt.Sprintf("/projects/%d/tasks", projectID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &tasks); err != nil {
		return nil, fmt.Errorf("listing tasks of project %d: %w", projectID, err)
	}
	return tasks, nil
}

// CreateTask creates a task inside the given project.
func (c *Client) CreateTask(ctx context.Context, token string, projectID int64, t NewTask) (*Task, error) {
	var task Task
	path := fmt.Sprintf("/projects/%d/tasks", projectID)
	if err := c.do(ctx, http.MethodPut, path, token, t, &task); err != nil {
		return nil, fmt.Errorf("creating task %q: %w", t.Title, err)
	}
	return &task, nil
}

// GetTask fetches a single task by id.
func (c *Client) GetTask(ctx context.Context, token string, taskID int64) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d", taskID), token, nil, &task); err != nil {
		return nil, fmt.Errorf("fetching task %d: %w", taskID, err)
	}
	return &task, nil
}

// CompleteTask marks a task as done. Vikunja accepts the update even if
// the task is already done, so the call is idempotent.
func (c *Client) CompleteTask(ctx context.Context, token string, taskID int64) (*Task, error) {
	var task Task
	body := map[string]bool{"done": true}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tasks/%d", taskID), token, body, &task); err != nil {
		return nil, fmt.Errorf("completing task %d: %w", taskID, err)
	}
	return &task, nil
}

// SetTaskDueDate replaces a task's due date. A zero due clears it.
func (c *Client) SetTaskDueDate(ctx context.Context, token string, taskID int64, due time.Time) (*Task, error) {
	var task Task
	body := map[string]time.Time{"due_date": due}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tasks/%d", taskID), token, body, &task); err != nil {
		return nil, fmt.Errorf("updating due date of task %d: %w", taskID, err)
	}
	return &task, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, token string, taskID int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", taskID), token, nil, nil); err != nil {
		return fmt.Errorf("deleting task %d: %w", taskID, err)
	}
	return nil
}

// ListLabels returns every label the token's user owns.
func (c *Client) ListLabels(ctx context.Context, token string) ([]Label, error) {
	var labels []Label
	if err := c.do(ctx, http.MethodGet, "/labels", token, nil, &labels); err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}
	return labels, nil
}

// CreateLabel creates a label with the given title.
func (c *Client) CreateLabel(ctx context.Context, token, title string) (*Label, error) {
	var label Label
	if err := c.do(ctx, http.MethodPut, "/labels", token, map[string]string{"title": title}, &label); err != nil {
		return nil, fmt.Errorf("creating label %q: %w", title, err)
	}
	return &label, nil
}

// do performs one API round trip. Network failures come back wrapped in
// ErrUnavailable; non-2xx statuses come back as *APIError.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		// Vikunja error bodies carry a "message" field; best effort only.
		json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response json: %w", err)
	}
	return nil
}
