package views

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"projectboard/domain"
	"projectboard/internal/assertx"
)

func newTestProjectList(api ProjectAPI) *ProjectList {
	logger, _ := test.NewNullLogger()
	return NewProjectList(api, logger)
}

func TestProjectListLoad(t *testing.T) {
	board := newFakeBoard(domain.Project{ID: "p1", Name: "Alpha"}, domain.Project{ID: "p2", Name: "Beta"})
	v := newTestProjectList(board)

	assertx.NoError(t, v.Load(context.Background()))
	assertx.Equal(t, 2, len(v.Projects()))
	assertx.Equal(t, "", v.Err())
}

func TestProjectListLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "backend message", err: &domain.AuthenticationError{Status: 401, Message: "Not authorized, token failed"}, want: "Not authorized, token failed"},
		{name: "no message", err: &domain.APIError{Status: 500}, want: "request failed with status 500 (Internal Server Error)"},
		{name: "transport", err: &domain.TransportError{Op: "GET /api/projects", Err: errors.New("connection refused")}, want: "GET /api/projects: connection refused"},
		{name: "blank", err: errors.New(""), want: "Error loading projects"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := newFakeBoard()
			board.listErr = tt.err
			v := newTestProjectList(board)
			if err := v.Load(context.Background()); err == nil {
				t.Fatalf("expected error")
			}
			assertx.Equal(t, tt.want, v.Err())
		})
	}
}

func TestProjectListSubmitCreatesAndUpdates(t *testing.T) {
	ctx := context.Background()
	board := newFakeBoard(domain.Project{ID: "p1", Name: "Alpha"})
	v := newTestProjectList(board)
	assertx.NoError(t, v.Load(ctx))

	created, err := v.Submit(ctx, domain.ProjectInput{Name: "Beta", Description: "second"})
	assertx.NoError(t, err)
	assertx.Equal(t, 2, len(v.Projects()))
	assertx.Equal(t, created, v.Projects()[1])

	assertx.NoError(t, v.Edit("p1"))
	updated, err := v.Submit(ctx, domain.ProjectInput{Name: "Alpha v2"})
	assertx.NoError(t, err)
	assertx.Equal(t, "p1", updated.ID)
	assertx.Equal(t, 2, len(v.Projects()))
	assertx.Equal(t, "Alpha v2", v.Projects()[0].Name)
	if _, editing := v.Editing(); editing {
		t.Fatalf("edit form should reset after a save")
	}
}

func TestProjectListSubmitValidation(t *testing.T) {
	board := newFakeBoard()
	board.createErr = errors.New("must not be called")
	v := newTestProjectList(board)

	_, err := v.Submit(context.Background(), domain.ProjectInput{Name: "   "})
	assertx.ErrorAs[*domain.ValidationError](t, err)
	assertx.Equal(t, "Project name is required.", v.Err())
	assertx.Equal(t, 0, len(board.projects))
}

func TestProjectListSubmitFailureKeepsForm(t *testing.T) {
	ctx := context.Background()
	board := newFakeBoard(domain.Project{ID: "p1", Name: "Alpha"})
	board.updateErr = &domain.APIError{Status: 500}
	v := newTestProjectList(board)
	assertx.NoError(t, v.Load(ctx))
	assertx.NoError(t, v.Edit("p1"))

	board.updateErr = errors.New("")
	if _, err := v.Submit(ctx, domain.ProjectInput{Name: "Renamed"}); err == nil {
		t.Fatalf("expected error")
	}
	assertx.Equal(t, "Error saving project.", v.Err())
	p, editing := v.Editing()
	assertx.Equal(t, true, editing)
	assertx.Equal(t, "p1", p.ID)
	assertx.Equal(t, "Alpha", v.Projects()[0].Name)
}

func TestProjectListDeleteClearsEditForm(t *testing.T) {
	ctx := context.Background()
	board := newFakeBoard(domain.Project{ID: "p1", Name: "Alpha"}, domain.Project{ID: "p2", Name: "Beta"})
	v := newTestProjectList(board)
	assertx.NoError(t, v.Load(ctx))
	assertx.NoError(t, v.Edit("p1"))

	assertx.NoError(t, v.Delete(ctx, "p1"))
	assertx.DeepEqual(t, []domain.Project{{ID: "p2", Name: "Beta"}}, v.Projects())
	if _, editing := v.Editing(); editing {
		t.Fatalf("deleting the edited project must clear the edit form")
	}
}

func TestProjectListDeleteOtherKeepsEditForm(t *testing.T) {
	ctx := context.Background()
	board := newFakeBoard(domain.Project{ID: "p1", Name: "Alpha"}, domain.Project{ID: "p2", Name: "Beta"})
	v := newTestProjectList(board)
	assertx.NoError(t, v.Load(ctx))
	assertx.NoError(t, v.Edit("p1"))

	assertx.NoError(t, v.Delete(ctx, "p2"))
	p, editing := v.Editing()
	assertx.Equal(t, true, editing)
	assertx.Equal(t, "p1", p.ID)
}

func TestProjectListDeleteFailure(t *testing.T) {
	ctx := context.Background()
	board := newFakeBoard(domain.Project{ID: "p1", Name: "Alpha"})
	v := newTestProjectList(board)
	assertx.NoError(t, v.Load(ctx))

	board.deleteErr = &domain.APIError{Status: 403, Message: "Not authorized to delete this project"}
	if err := v.Delete(ctx, "p1"); err == nil {
		t.Fatalf("expected error")
	}
	assertx.Equal(t, "Not authorized to delete this project", v.Err())
	assertx.Equal(t, 1, len(v.Projects()))

	board.deleteErr = errors.New("")
	_ = v.Delete(ctx, "p1")
	assertx.Equal(t, "Error deleting project", v.Err())
}

func TestProjectListEditUnknown(t *testing.T) {
	v := newTestProjectList(newFakeBoard())
	assertx.ErrorAs[*domain.NotFoundError](t, v.Edit("nope"))
	assertx.Equal(t, "Project not found.", v.Err())
}

func TestProjectDetailLoad(t *testing.T) {
	ctx := context.Background()
	board := newFakeBoard(domain.Project{ID: "p1", Name: "Alpha"})
	logger, _ := test.NewNullLogger()
	v := NewProjectDetail(board, logger)

	assertx.NoError(t, v.Load(ctx, "p1"))
	p, ok := v.Project()
	assertx.Equal(t, true, ok)
	assertx.Equal(t, "Alpha", p.Name)

	if err := v.Load(ctx, "missing"); err == nil {
		t.Fatalf("expected not found")
	}
	_, ok = v.Project()
	assertx.Equal(t, false, ok)
	assertx.Equal(t, "Project not found", v.Err())

	board.getErr = &domain.NotFoundError{Resource: "project"}
	_ = v.Load(ctx, "p1")
	assertx.Equal(t, "Project not found.", v.Err())

	board.getErr = errors.New("")
	_ = v.Load(ctx, "p1")
	assertx.Equal(t, "Error loading project", v.Err())
}
