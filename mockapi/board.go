package mockapi

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"projectboard/domain"
)

var (
	errDuplicateEmail     = errors.New("User already exists")
	errInvalidCredentials = errors.New("Invalid credentials")
	errProjectNotFound    = errors.New("Project not found")
	errTaskNotFound       = errors.New("Task not found")
	errForbidden          = errors.New("User is not authorized for this project")
)

type user struct {
	domain.User
	hash []byte
}

type project struct {
	domain.Project
	owner string
	tasks []domain.Task
}

// Board is the in-memory state of the fake backend: accounts, projects in
// creation order and the tasks of each project.
type Board struct {
	mu       sync.Mutex
	cost     int
	byEmail  map[string]*user
	byID     map[string]*user
	projects []*project
}

// NewBoard returns an empty board. cost is the bcrypt cost; zero selects
// bcrypt.MinCost.
func NewBoard(cost int) *Board {
	if cost == 0 {
		cost = bcrypt.MinCost
	}
	return &Board{cost: cost, byEmail: map[string]*user{}, byID: map[string]*user{}}
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (b *Board) register(username, email, password string) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := normEmail(email)
	if _, ok := b.byEmail[key]; ok {
		return nil, errDuplicateEmail
	}
	u := &user{
		User: domain.User{ID: uuid.NewString(), Username: strings.TrimSpace(username), Email: strings.TrimSpace(email)},
		hash: hash,
	}
	b.byEmail[key] = u
	b.byID[u.ID] = u
	return u, nil
}

func (b *Board) authenticate(email, password string) (*user, error) {
	b.mu.Lock()
	u, ok := b.byEmail[normEmail(email)]
	b.mu.Unlock()
	if !ok {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.hash, []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return u, nil
}

func (b *Board) userExists(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.byID[id]
	return ok
}

func (b *Board) listProjects(owner string) []domain.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Project, 0, len(b.projects))
	for _, p := range b.projects {
		if p.owner == owner {
			out = append(out, p.Project)
		}
	}
	return out
}

// project returns the project with id when owner may access it. Callers hold mu.
func (b *Board) project(owner, id string) (*project, int, error) {
	for i, p := range b.projects {
		if p.ID != id {
			continue
		}
		if p.owner != owner {
			return nil, -1, errForbidden
		}
		return p, i, nil
	}
	return nil, -1, errProjectNotFound
}

func (b *Board) getProject(owner, id string) (domain.Project, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, _, err := b.project(owner, id)
	if err != nil {
		return domain.Project{}, err
	}
	return p.Project, nil
}

func (b *Board) createProject(owner string, in domain.ProjectInput) domain.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &project{
		Project: domain.Project{ID: uuid.NewString(), Name: in.Name, Description: in.Description},
		owner:   owner,
	}
	b.projects = append(b.projects, p)
	return p.Project
}

func (b *Board) updateProject(owner, id string, in domain.ProjectInput) (domain.Project, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, _, err := b.project(owner, id)
	if err != nil {
		return domain.Project{}, err
	}
	p.Name, p.Description = in.Name, in.Description
	return p.Project, nil
}

// deleteProject removes the project together with its tasks.
func (b *Board) deleteProject(owner, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, i, err := b.project(owner, id)
	if err != nil {
		return err
	}
	b.projects = append(b.projects[:i], b.projects[i+1:]...)
	return nil
}

func (b *Board) listTasks(owner, projectID string) ([]domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, _, err := b.project(owner, projectID)
	if err != nil {
		return nil, err
	}
	return append([]domain.Task{}, p.tasks...), nil
}

func (b *Board) createTask(owner, projectID string, in domain.NewTask) (domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, _, err := b.project(owner, projectID)
	if err != nil {
		return domain.Task{}, err
	}
	t := domain.Task{ID: uuid.NewString(), Title: in.Title, Description: in.Description, Status: in.Status}
	p.tasks = append(p.tasks, t)
	return t, nil
}

func (b *Board) updateTask(owner, projectID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, _, err := b.project(owner, projectID)
	if err != nil {
		return domain.Task{}, err
	}
	for i := range p.tasks {
		if p.tasks[i].ID == taskID {
			p.tasks[i] = patch.Apply(p.tasks[i])
			return p.tasks[i], nil
		}
	}
	return domain.Task{}, errTaskNotFound
}

func (b *Board) deleteTask(owner, projectID, taskID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, _, err := b.project(owner, projectID)
	if err != nil {
		return err
	}
	for i := range p.tasks {
		if p.tasks[i].ID == taskID {
			p.tasks = append(p.tasks[:i], p.tasks[i+1:]...)
			return nil
		}
	}
	return errTaskNotFound
}
