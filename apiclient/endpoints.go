package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"projectboard/domain"
)

const (
	routeLogin    = "/api/users/login"
	routeRegister = "/api/users/register"
	routeProjects = "/api/projects"
	routeProject  = "/api/projects/:id"
	routeTasks    = "/api/projects/:id/tasks"
	routeTask     = "/api/projects/:id/tasks/:taskId"
)

func projectPath(id string) string {
	return routeProjects + "/" + url.PathEscape(id)
}

func tasksPath(projectID string) string {
	return projectPath(projectID) + "/tasks"
}

func taskPath(projectID, taskID string) string {
	return tasksPath(projectID) + "/" + url.PathEscape(taskID)
}

// Login exchanges credentials for a token and user profile.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error) {
	var res domain.AuthResult
	if err := c.call(ctx, http.MethodPost, routeLogin, routeLogin, creds, &res); err != nil {
		return domain.AuthResult{}, err
	}
	if err := checkAuthResult(http.MethodPost+" "+routeLogin, res); err != nil {
		return domain.AuthResult{}, err
	}
	return res, nil
}

// Register creates an account and returns its token and user profile.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error) {
	var res domain.AuthResult
	if err := c.call(ctx, http.MethodPost, routeRegister, routeRegister, reg, &res); err != nil {
		return domain.AuthResult{}, err
	}
	if err := checkAuthResult(http.MethodPost+" "+routeRegister, res); err != nil {
		return domain.AuthResult{}, err
	}
	return res, nil
}

// checkAuthResult rejects 2xx bodies that lack the token or the user.
func checkAuthResult(op string, res domain.AuthResult) error {
	if res.Token == "" || res.User == nil {
		return &domain.TransportError{Op: op, Err: errors.New("malformed auth response")}
	}
	return nil
}

func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	projects := []domain.Project{}
	if err := c.call(ctx, http.MethodGet, routeProjects, routeProjects, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	err := c.call(ctx, http.MethodGet, routeProject, projectPath(id), nil, &p)
	return p, err
}

func (c *Client) CreateProject(ctx context.Context, in domain.ProjectInput) (domain.Project, error) {
	var p domain.Project
	err := c.call(ctx, http.MethodPost, routeProjects, routeProjects, in, &p)
	return p, err
}

func (c *Client) UpdateProject(ctx context.Context, id string, in domain.ProjectInput) (domain.Project, error) {
	var p domain.Project
	err := c.call(ctx, http.MethodPut, routeProject, projectPath(id), in, &p)
	return p, err
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, routeProject, projectPath(id), nil, nil)
}

func (c *Client) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	tasks := []domain.Task{}
	if err := c.call(ctx, http.MethodGet, routeTasks, tasksPath(projectID), nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, projectID string, in domain.NewTask) (domain.Task, error) {
	var t domain.Task
	err := c.call(ctx, http.MethodPost, routeTasks, tasksPath(projectID), in, &t)
	return t, err
}

func (c *Client) UpdateTask(ctx context.Context, projectID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	var t domain.Task
	err := c.call(ctx, http.MethodPut, routeTask, taskPath(projectID, taskID), patch, &t)
	return t, err
}

func (c *Client) DeleteTask(ctx context.Context, projectID, taskID string) error {
	return c.call(ctx, http.MethodDelete, routeTask, taskPath(projectID, taskID), nil, nil)
}
