// Package views holds the client-side state of the project and task screens
// and reconciles it with the results of REST calls.
package views

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"projectboard/domain"
)

// ProjectAPI is the subset of the REST client used by the project views.
type ProjectAPI interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, id string) (domain.Project, error)
	CreateProject(ctx context.Context, in domain.ProjectInput) (domain.Project, error)
	UpdateProject(ctx context.Context, id string, in domain.ProjectInput) (domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

const (
	msgLoadProjects   = "Error loading projects"
	msgDeleteProject  = "Error deleting project"
	msgSaveProject    = "Error saving project."
	msgLoadProject    = "Error loading project"
	msgProjectMissing = "Project not found."
)

// ProjectList is the state of the projects screen: the loaded projects, the
// project being edited (if any) and the last error message. It is not safe
// for concurrent use.
type ProjectList struct {
	api    ProjectAPI
	logger *log.Logger

	projects []domain.Project
	editing  *domain.Project
	err      string
}

func NewProjectList(api ProjectAPI, logger *log.Logger) *ProjectList {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &ProjectList{api: api, logger: logger}
}

// Projects returns a copy of the loaded projects in display order.
func (v *ProjectList) Projects() []domain.Project {
	return append([]domain.Project(nil), v.projects...)
}

// Err returns the message of the last failed action, or "".
func (v *ProjectList) Err() string { return v.err }

// Editing returns the project currently loaded in the edit form.
func (v *ProjectList) Editing() (domain.Project, bool) {
	if v.editing == nil {
		return domain.Project{}, false
	}
	return *v.editing, true
}

// Load replaces the list with the projects visible to the current user.
func (v *ProjectList) Load(ctx context.Context) error {
	v.err = ""
	projects, err := v.api.ListProjects(ctx)
	if err != nil {
		return v.fail(err, msgLoadProjects)
	}
	v.projects = projects
	if v.editing != nil && indexOfProject(v.projects, v.editing.ID) < 0 {
		v.editing = nil
	}
	return nil
}

// Edit puts the project with id into the edit form.
func (v *ProjectList) Edit(id string) error {
	i := indexOfProject(v.projects, id)
	if i < 0 {
		return v.fail(&domain.NotFoundError{Resource: "project", Message: msgProjectMissing}, msgProjectMissing)
	}
	p := v.projects[i]
	v.editing = &p
	v.err = ""
	return nil
}

// CancelEdit returns the form to create mode.
func (v *ProjectList) CancelEdit() { v.editing = nil }

// Submit creates a project, or updates the one being edited, and upserts the
// saved project into the list.
func (v *ProjectList) Submit(ctx context.Context, in domain.ProjectInput) (domain.Project, error) {
	v.err = ""
	if err := in.Validate(); err != nil {
		return domain.Project{}, v.fail(err, msgSaveProject)
	}

	var (
		saved domain.Project
		err   error
	)
	if v.editing != nil && v.editing.ID != "" {
		saved, err = v.api.UpdateProject(ctx, v.editing.ID, in)
	} else {
		saved, err = v.api.CreateProject(ctx, in)
	}
	if err != nil {
		return domain.Project{}, v.fail(err, msgSaveProject)
	}

	if i := indexOfProject(v.projects, saved.ID); i >= 0 {
		v.projects[i] = saved
	} else {
		v.projects = append(v.projects, saved)
	}
	v.editing = nil
	return saved, nil
}

// Delete removes the project on the backend and from the list. Deleting the
// project being edited clears the edit form.
func (v *ProjectList) Delete(ctx context.Context, id string) error {
	v.err = ""
	if err := v.api.DeleteProject(ctx, id); err != nil {
		return v.fail(err, msgDeleteProject)
	}
	if i := indexOfProject(v.projects, id); i >= 0 {
		v.projects = append(v.projects[:i:i], v.projects[i+1:]...)
	}
	if v.editing != nil && v.editing.ID == id {
		v.editing = nil
	}
	return nil
}

func (v *ProjectList) fail(err error, fallback string) error {
	v.err = domain.Message(err, fallback)
	v.logger.WithError(err).Warn(fallback)
	return err
}

// ProjectDetail is the state of the single project screen.
type ProjectDetail struct {
	api    ProjectAPI
	logger *log.Logger

	project *domain.Project
	err     string
}

func NewProjectDetail(api ProjectAPI, logger *log.Logger) *ProjectDetail {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &ProjectDetail{api: api, logger: logger}
}

// Load fetches the project. An unknown id leaves the view empty with the
// backend message, or "Project not found." when there is none.
func (v *ProjectDetail) Load(ctx context.Context, id string) error {
	v.err = ""
	p, err := v.api.GetProject(ctx, id)
	if err != nil {
		v.project = nil
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			v.err = domain.Message(err, msgProjectMissing)
		} else {
			v.err = domain.Message(err, msgLoadProject)
		}
		v.logger.WithError(err).WithField("project", id).Warn(msgLoadProject)
		return err
	}
	v.project = &p
	return nil
}

// Project returns the loaded project.
func (v *ProjectDetail) Project() (domain.Project, bool) {
	if v.project == nil {
		return domain.Project{}, false
	}
	return *v.project, true
}

func (v *ProjectDetail) Err() string { return v.err }

func indexOfProject(ps []domain.Project, id string) int {
	for i := range ps {
		if ps[i].ID == id {
			return i
		}
	}
	return -1
}
