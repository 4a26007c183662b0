package views

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"projectboard/domain"
)

// TaskAPI is the subset of the REST client used by the task view.
type TaskAPI interface {
	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	CreateTask(ctx context.Context, projectID string, in domain.NewTask) (domain.Task, error)
	UpdateTask(ctx context.Context, projectID, taskID string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, projectID, taskID string) error
}

const (
	msgLoadTasks    = "Failed to load tasks"
	msgCreateTask   = "Failed to create task"
	msgUpdateTask   = "Failed to update task"
	msgDeleteTask   = "Failed to delete task"
	msgUpdateStatus = "Error updating status"
)

// FilterAll is the filter value that shows every task.
const FilterAll = "all"

// TaskList is the task state of one project. Every call is scoped to that
// project, so two lists never see each other's tasks. It is not safe for
// concurrent use.
type TaskList struct {
	api       TaskAPI
	projectID string
	logger    *log.Logger

	tasks   []domain.Task
	editing string
	filter  domain.TaskStatus
	err     string
}

func NewTaskList(api TaskAPI, projectID string, logger *log.Logger) *TaskList {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &TaskList{api: api, projectID: projectID, logger: logger}
}

func (v *TaskList) ProjectID() string { return v.projectID }

// Err returns the message of the last failed action, or "".
func (v *TaskList) Err() string { return v.err }

// Tasks returns every loaded task in backend order.
func (v *TaskList) Tasks() []domain.Task {
	return append([]domain.Task(nil), v.tasks...)
}

// Visible returns the tasks that pass the current filter.
func (v *TaskList) Visible() []domain.Task {
	if v.filter == "" {
		return v.Tasks()
	}
	out := make([]domain.Task, 0, len(v.tasks))
	for _, t := range v.tasks {
		if t.Status == v.filter {
			out = append(out, t)
		}
	}
	return out
}

// Filter restricts Visible to one status; "all" or "" removes the filter.
func (v *TaskList) Filter(status string) error {
	if s := strings.TrimSpace(status); s == "" || strings.EqualFold(s, FilterAll) {
		v.filter = ""
		return nil
	}
	st, err := domain.ParseTaskStatus(status)
	if err != nil {
		return err
	}
	v.filter = st
	return nil
}

// Editing returns the id of the task in edit mode, or "".
func (v *TaskList) Editing() string { return v.editing }

func (v *TaskList) Load(ctx context.Context) error {
	v.err = ""
	tasks, err := v.api.ListTasks(ctx, v.projectID)
	if err != nil {
		return v.fail(err, msgLoadTasks)
	}
	v.tasks = tasks
	if v.editing != "" && v.indexOf(v.editing) < 0 {
		v.editing = ""
	}
	return nil
}

// Add creates a task and appends the backend's copy to the list. An empty
// status defaults to todo.
func (v *TaskList) Add(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	v.err = ""
	if in.Status == "" {
		in.Status = domain.StatusTodo
	}
	if err := in.Validate(); err != nil {
		return domain.Task{}, v.fail(err, msgCreateTask)
	}
	t, err := v.api.CreateTask(ctx, v.projectID, in)
	if err != nil {
		return domain.Task{}, v.fail(err, msgCreateTask)
	}
	v.tasks = append(v.tasks, t)
	return t, nil
}

// StartEdit puts the task in edit mode and returns its current values for
// the edit form.
func (v *TaskList) StartEdit(id string) (domain.Task, error) {
	i := v.indexOf(id)
	if i < 0 {
		return domain.Task{}, v.fail(&domain.NotFoundError{Resource: "task", Message: fmt.Sprintf("task %s not found", id)}, msgUpdateTask)
	}
	v.editing = id
	v.err = ""
	return v.tasks[i], nil
}

// CancelEdit leaves edit mode without saving.
func (v *TaskList) CancelEdit() { v.editing = "" }

// SaveEdit sends the edit form of the task in edit mode and replaces it with
// the backend's copy.
func (v *TaskList) SaveEdit(ctx context.Context, patch domain.TaskPatch) (domain.Task, error) {
	v.err = ""
	if v.editing == "" {
		return domain.Task{}, v.fail(&domain.ValidationError{Message: "No task is being edited"}, msgUpdateTask)
	}
	if patch.Empty() {
		return domain.Task{}, v.fail(&domain.ValidationError{Message: "Nothing to update"}, msgUpdateTask)
	}
	if err := patch.Validate(); err != nil {
		return domain.Task{}, v.fail(err, msgUpdateTask)
	}
	t, err := v.update(ctx, v.editing, patch)
	if err != nil {
		return domain.Task{}, v.fail(err, msgUpdateTask)
	}
	v.editing = ""
	return t, nil
}

// SetStatus moves a task to status with a partial update.
func (v *TaskList) SetStatus(ctx context.Context, id string, status domain.TaskStatus) (domain.Task, error) {
	v.err = ""
	patch := domain.TaskPatch{Status: &status}
	if err := patch.Validate(); err != nil {
		return domain.Task{}, v.fail(err, msgUpdateStatus)
	}
	t, err := v.update(ctx, id, patch)
	if err != nil {
		return domain.Task{}, v.fail(err, msgUpdateStatus)
	}
	return t, nil
}

func (v *TaskList) update(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	t, err := v.api.UpdateTask(ctx, v.projectID, id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	if i := v.indexOf(id); i >= 0 {
		v.tasks[i] = t
	} else {
		v.tasks = append(v.tasks, t)
	}
	return t, nil
}

// Delete removes the task on the backend and from the list.
func (v *TaskList) Delete(ctx context.Context, id string) error {
	v.err = ""
	if err := v.api.DeleteTask(ctx, v.projectID, id); err != nil {
		return v.fail(err, msgDeleteTask)
	}
	if i := v.indexOf(id); i >= 0 {
		v.tasks = append(v.tasks[:i:i], v.tasks[i+1:]...)
	}
	if v.editing == id {
		v.editing = ""
	}
	return nil
}

func (v *TaskList) indexOf(id string) int {
	for i := range v.tasks {
		if v.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *TaskList) fail(err error, fallback string) error {
	v.err = domain.Message(err, fallback)
	v.logger.WithError(err).WithField("project", v.projectID).Warn(fallback)
	return err
}
