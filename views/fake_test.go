package views

import (
	"context"
	"fmt"

	"projectboard/domain"
)

// fakeBoard is an in-memory backend. Setting a *Err field makes the matching
// call fail with it.
type fakeBoard struct {
	projects []domain.Project
	tasks    map[string][]domain.Task
	nextID   int

	listErr, getErr, createErr, updateErr, deleteErr error
	taskErr                                          error

	updates []domain.TaskPatch
}

func newFakeBoard(projects ...domain.Project) *fakeBoard {
	return &fakeBoard{projects: projects, tasks: map[string][]domain.Task{}}
}

func (f *fakeBoard) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakeBoard) ListProjects(context.Context) ([]domain.Project, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Project{}, f.projects...), nil
}

func (f *fakeBoard) GetProject(_ context.Context, id string) (domain.Project, error) {
	if f.getErr != nil {
		return domain.Project{}, f.getErr
	}
	for _, p := range f.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Project{}, &domain.NotFoundError{Resource: "project", Message: "Project not found"}
}

func (f *fakeBoard) CreateProject(_ context.Context, in domain.ProjectInput) (domain.Project, error) {
	if f.createErr != nil {
		return domain.Project{}, f.createErr
	}
	p := domain.Project{ID: f.id("p"), Name: in.Name, Description: in.Description}
	f.projects = append(f.projects, p)
	return p, nil
}

func (f *fakeBoard) UpdateProject(_ context.Context, id string, in domain.ProjectInput) (domain.Project, error) {
	if f.updateErr != nil {
		return domain.Project{}, f.updateErr
	}
	for i, p := range f.projects {
		if p.ID == id {
			f.projects[i] = domain.Project{ID: id, Name: in.Name, Description: in.Description}
			return f.projects[i], nil
		}
	}
	return domain.Project{}, &domain.NotFoundError{Resource: "project"}
}

func (f *fakeBoard) DeleteProject(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, p := range f.projects {
		if p.ID == id {
			f.projects = append(f.projects[:i], f.projects[i+1:]...)
			return nil
		}
	}
	return &domain.NotFoundError{Resource: "project"}
}

func (f *fakeBoard) ListTasks(_ context.Context, projectID string) ([]domain.Task, error) {
	if f.taskErr != nil {
		return nil, f.taskErr
	}
	return append([]domain.Task{}, f.tasks[projectID]...), nil
}

func (f *fakeBoard) CreateTask(_ context.Context, projectID string, in domain.NewTask) (domain.Task, error) {
	if f.taskErr != nil {
		return domain.Task{}, f.taskErr
	}
	t := domain.Task{ID: f.id("t"), Title: in.Title, Description: in.Description, Status: in.Status}
	f.tasks[projectID] = append(f.tasks[projectID], t)
	return t, nil
}

func (f *fakeBoard) UpdateTask(_ context.Context, projectID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	f.updates = append(f.updates, patch)
	if f.taskErr != nil {
		return domain.Task{}, f.taskErr
	}
	for i, t := range f.tasks[projectID] {
		if t.ID == taskID {
			f.tasks[projectID][i] = patch.Apply(t)
			return f.tasks[projectID][i], nil
		}
	}
	return domain.Task{}, &domain.NotFoundError{Resource: "task"}
}

func (f *fakeBoard) DeleteTask(_ context.Context, projectID, taskID string) error {
	if f.taskErr != nil {
		return f.taskErr
	}
	ts := f.tasks[projectID]
	for i, t := range ts {
		if t.ID == taskID {
			f.tasks[projectID] = append(ts[:i], ts[i+1:]...)
			return nil
		}
	}
	return &domain.NotFoundError{Resource: "task"}
}
