package domain

import "strings"

// Project is a named container of tasks owned by the backend.
type Project struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProjectInput is the body of POST /api/projects and PUT /api/projects/:id.
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (p ProjectInput) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Message: "Project name is required."}
	}
	return nil
}
