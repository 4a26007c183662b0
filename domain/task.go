package domain

import (
	"fmt"
	"strings"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusDone       TaskStatus = "done"
)

// Statuses lists every valid status in board order.
var Statuses = []TaskStatus{StatusTodo, StatusInProgress, StatusDone}

var statusLabels = map[TaskStatus]string{
	StatusTodo:       "To Do",
	StatusInProgress: "In Progress",
	StatusDone:       "Done",
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable name of the status. Unknown values are
// returned unchanged.
func (s TaskStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseTaskStatus accepts the wire value ("in-progress") as well as loose
// spellings typed on a command line ("in progress", "IN_PROGRESS").
func ParseTaskStatus(raw string) (TaskStatus, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.NewReplacer(" ", "-", "_", "-").Replace(v)
	s := TaskStatus(v)
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("invalid status %q", raw)}
	}
	return s, nil
}

// Task is a unit of work belonging to exactly one project.
type Task struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
}

// NewTask is the body of POST /api/projects/:id/tasks.
type NewTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
}

// Validate checks the presence rules enforced before the request is sent.
func (t NewTask) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return &ValidationError{Field: "title", Message: "Task title is required"}
	}
	if t.Status != "" && !t.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("invalid status %q", t.Status)}
	}
	return nil
}

// TaskPatch carries a partial task update. Nil fields are left untouched by
// the backend.
type TaskPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
}

// Validate rejects patches that would blank the title or set an unknown status.
func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &ValidationError{Field: "title", Message: "Task title is required"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("invalid status %q", *p.Status)}
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// Apply returns a copy of t with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}
