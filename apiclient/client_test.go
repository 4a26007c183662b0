package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"projectboard/domain"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientAttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotRequestID, gotContentType, gotBody, gotUA string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get(headerRequestID)
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"_id":"p1","name":"Alpha","description":"first"}`)
	})

	c := New(srv.URL+"/",
		WithTokenSource(TokenFunc(func() string { return "tok123" })),
		WithUserAgent("projectboard/test"),
	)
	p, err := c.CreateProject(context.Background(), domain.ProjectInput{Name: "Alpha", Description: "first"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if p.ID != "p1" || p.Name != "Alpha" {
		t.Fatalf("unexpected project: %+v", p)
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Fatalf("expected request id header")
	}
	if gotUA != "projectboard/test" {
		t.Fatalf("unexpected user agent %q", gotUA)
	}
	if gotContentType != "application/json" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}
	if gotBody != `{"name":"Alpha","description":"first"}` {
		t.Fatalf("unexpected body %s", gotBody)
	}
}

func TestClientOmitsAuthorizationWithoutToken(t *testing.T) {
	var sawAuth bool
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		_, _ = io.WriteString(w, `[]`)
	})

	c := New(srv.URL, WithTokenSource(TokenFunc(func() string { return "" })))
	projects, err := c.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if projects == nil || len(projects) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", projects)
	}
	if sawAuth {
		t.Fatalf("authorization header should not be sent without a token")
	}
}

func TestClientStatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		check   func(t *testing.T, err error)
		wantMsg string
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"message":"Invalid credentials"}`,
			check: func(t *testing.T, err error) {
				var aerr *domain.AuthenticationError
				if !errors.As(err, &aerr) || aerr.Status != http.StatusUnauthorized {
					t.Fatalf("expected authentication error, got %T %v", err, err)
				}
			},
			wantMsg: "Invalid credentials",
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"message":"Project not found"}`,
			check: func(t *testing.T, err error) {
				var nerr *domain.NotFoundError
				if !errors.As(err, &nerr) || nerr.Resource != "project" {
					t.Fatalf("expected project not found error, got %T %v", err, err)
				}
			},
			wantMsg: "Project not found",
		},
		{
			name:   "server error without json",
			status: http.StatusInternalServerError,
			body:   `<html>oops</html>`,
			check: func(t *testing.T, err error) {
				var perr *domain.APIError
				if !errors.As(err, &perr) || perr.Status != http.StatusInternalServerError || perr.Message != "" {
					t.Fatalf("expected bare api error, got %T %v", err, err)
				}
			},
			wantMsg: "Error loading project",
		},
		{
			name:   "bad request with error field",
			status: http.StatusBadRequest,
			body:   `{"error":"name is required"}`,
			check: func(t *testing.T, err error) {
				var perr *domain.APIError
				if !errors.As(err, &perr) {
					t.Fatalf("expected api error, got %T", err)
				}
			},
			wantMsg: "name is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := New(srv.URL).GetProject(context.Background(), "p1")
			if err == nil {
				t.Fatalf("expected error")
			}
			tt.check(t, err)
			if got := domain.Message(err, "Error loading project"); got != tt.wantMsg {
				t.Fatalf("Message() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestClientTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).ListProjects(context.Background())
	var terr *domain.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected transport error for unreachable server, got %T %v", err, err)
	}
}

func TestClientMalformedBodyIsTransportError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"_id":`)
	})
	_, err := New(srv.URL).GetProject(context.Background(), "p1")
	var terr *domain.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected transport error, got %T %v", err, err)
	}
	if !strings.Contains(err.Error(), "decode body") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
	if strings.Contains(err.Error(), `{"_id"`) {
		t.Fatalf("error text quotes the response body: %q", err.Error())
	}
}

func projectsJSON(n int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"_id":"%d","name":"Project %d","description":"a project with a fairly long description for padding"}`, i, i)
	}
	b.WriteByte(']')
	return b.String()
}

func TestClientDecodesLargeLists(t *testing.T) {
	body := projectsJSON(12000)
	if len(body) <= 1<<20 {
		t.Fatalf("fixture too small: %d bytes", len(body))
	}
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	})
	projects, err := New(srv.URL).ListProjects(context.Background())
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 12000 || projects[11999].ID != "11999" {
		t.Fatalf("got %d projects", len(projects))
	}
}

func TestClientRejectsOversizedBody(t *testing.T) {
	body := projectsJSON(50)
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	})
	c := New(srv.URL)
	c.maxBody = 1024

	_, err := c.ListProjects(context.Background())
	var terr *domain.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected transport error, got %T %v", err, err)
	}
	if !strings.Contains(err.Error(), "response body exceeds 1024 bytes") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
	if strings.Contains(err.Error(), "Project 0") {
		t.Fatalf("error text quotes the response body: %q", err.Error())
	}

	c.maxBody = len(body)
	if _, err := c.ListProjects(context.Background()); err != nil {
		t.Fatalf("body at the limit should decode: %v", err)
	}
}

func TestWithTimeoutLeavesSuppliedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: 5 * time.Second}
	tests := []struct {
		name string
		opts []Option
		want time.Duration
		same bool
	}{
		{name: "default", want: defaultTimeout},
		{name: "timeout only", opts: []Option{WithTimeout(2 * time.Second)}, want: 2 * time.Second},
		{name: "timeout after client", opts: []Option{WithHTTPClient(shared), WithTimeout(time.Second)}, want: 5 * time.Second, same: true},
		{name: "timeout before client", opts: []Option{WithTimeout(time.Second), WithHTTPClient(shared)}, want: 5 * time.Second, same: true},
		{name: "nil client", opts: []Option{WithHTTPClient(nil), WithTimeout(3 * time.Second)}, want: 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("http://example.test", tt.opts...)
			if c.HTTP == nil {
				t.Fatalf("nil HTTP client")
			}
			if c.HTTP.Timeout != tt.want {
				t.Fatalf("timeout = %v, want %v", c.HTTP.Timeout, tt.want)
			}
			if (c.HTTP == shared) != tt.same {
				t.Fatalf("shared client used = %v, want %v", c.HTTP == shared, tt.same)
			}
		})
	}
	if shared.Timeout != 5*time.Second {
		t.Fatalf("supplied client was modified: %v", shared.Timeout)
	}
}

func TestClientDeleteAcceptsEmptyBody(t *testing.T) {
	var gotMethod, gotPath string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	})
	if err := New(srv.URL).DeleteTask(context.Background(), "p 1", "t1"); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/projects/p%201/tasks/t1" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestLoginRejectsIncompleteAuthResult(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token":"tok123"}`)
	})
	_, err := New(srv.URL).Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "secret"})
	var terr *domain.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected transport error, got %T %v", err, err)
	}
}

func TestUpdateTaskSendsPartialBody(t *testing.T) {
	var gotBody string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, `{"_id":"t1","title":"Write spec","status":"done"}`)
	})
	status := domain.StatusDone
	task, err := New(srv.URL).UpdateTask(context.Background(), "p1", "t1", domain.TaskPatch{Status: &status})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if gotBody != `{"status":"done"}` {
		t.Fatalf("unexpected body %s", gotBody)
	}
	if task.Status != domain.StatusDone {
		t.Fatalf("unexpected task %+v", task)
	}
}
