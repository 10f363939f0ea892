package vikunja

import "time"

// Task is the wire representation of a Vikunja task. The API reports an
// unset due date as the zero time ("0001-01-01T00:00:00Z"), which maps
// cleanly onto time.Time's zero value.
type Task struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	DueDate   time.Time `json:"due_date,omitempty"`
	Priority  int       `json:"priority,omitempty"`
	ProjectID int64     `json:"project_id,omitempty"`
	Labels    []Label   `json:"labels,omitempty"`
}

type Project struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type Label struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// NewTask carries the fields the bot sets when creating a task.
// Everything except Title is optional.
type NewTask struct {
	Title    string    `json:"title"`
	Priority int       `json:"priority,omitempty"`
	DueDate  time.Time `json:"due_date,omitempty"`
	LabelIDs []int64   `json:"label_ids,omitempty"`
}
