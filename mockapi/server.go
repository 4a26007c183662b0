// Package mockapi is an in-memory implementation of the project board REST
// backend. It backs the end-to-end tests and local development.
package mockapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"projectboard/domain"
)

const (
	maxBodySize = 64 << 10
	ctxUserID   = "userID"
)

type messageResponse struct {
	Message string `json:"message"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// New returns an echo instance with the middleware stack and every route
// registered.
func New(board *Board, auth *Auth, logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(requestLogger(logger))
	Register(e, board, auth, logger)
	return e
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, board *Board, auth *Auth, logger *log.Logger) {
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	users := e.Group("/api/users")
	users.POST("/register", postRegister(board, auth, logger))
	users.POST("/login", postLogin(board, auth))

	projects := e.Group("/api/projects", requireUser(board, auth))
	projects.GET("", getProjects(board))
	projects.POST("", postProject(board))
	projects.GET("/:id", getProject(board))
	projects.PUT("/:id", putProject(board))
	projects.DELETE("/:id", deleteProject(board))
	projects.GET("/:id/tasks", getTasks(board))
	projects.POST("/:id/tasks", postTask(board))
	projects.PUT("/:id/tasks/:taskId", putTask(board))
	projects.DELETE("/:id/tasks/:taskId", deleteTask(board))
}

func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			res := c.Response()
			entry := logger.WithFields(log.Fields{
				"method":     req.Method,
				"route":      c.Path(),
				"status":     res.Status,
				"latency_ms": float64(time.Since(start).Microseconds()) / 1000,
				"request_id": res.Header().Get(echo.HeaderXRequestID),
			})
			if res.Status >= http.StatusInternalServerError {
				entry.Error("request")
			} else {
				entry.Debug("request")
			}
			return nil
		}
	}
}

func requireUser(board *Board, auth *Auth) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				if errors.Is(err, errMissingAuthorization) {
					return message(c, http.StatusUnauthorized, "Not authorized, no token")
				}
				return message(c, http.StatusUnauthorized, "Not authorized, token failed")
			}
			if !board.userExists(userID) {
				return message(c, http.StatusUnauthorized, "Not authorized, user not found")
			}
			c.Set(ctxUserID, userID)
			return next(c)
		}
	}
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, messageResponse{Message: msg})
}

// boardError maps a Board error to its HTTP response.
func boardError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errProjectNotFound), errors.Is(err, errTaskNotFound):
		return message(c, http.StatusNotFound, err.Error())
	case errors.Is(err, errForbidden):
		return message(c, http.StatusForbidden, err.Error())
	case errors.Is(err, errDuplicateEmail):
		return message(c, http.StatusConflict, err.Error())
	case errors.Is(err, errInvalidCredentials):
		return message(c, http.StatusUnauthorized, err.Error())
	}
	c.Logger().Error(err)
	return message(c, http.StatusInternalServerError, "Server error")
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func userID(c echo.Context) string {
	id, _ := c.Get(ctxUserID).(string)
	return id
}

func postRegister(board *Board, auth *Auth, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req credentialsRequest
		if err := decodeBody(c, &req); err != nil {
			return message(c, http.StatusBadRequest, "Invalid request body")
		}
		if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
			return message(c, http.StatusBadRequest, "Username, email and password are required")
		}
		u, err := board.register(req.Username, req.Email, req.Password)
		if err != nil {
			return boardError(c, err)
		}
		logger.WithField("user", u.ID).Info("registered user")
		return issue(c, auth, u, http.StatusCreated)
	}
}

func postLogin(board *Board, auth *Auth) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req credentialsRequest
		if err := decodeBody(c, &req); err != nil {
			return message(c, http.StatusBadRequest, "Invalid request body")
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			return message(c, http.StatusBadRequest, "Email and password are required")
		}
		u, err := board.authenticate(req.Email, req.Password)
		if err != nil {
			return boardError(c, err)
		}
		return issue(c, auth, u, http.StatusOK)
	}
}

func issue(c echo.Context, auth *Auth, u *user, status int) error {
	token, err := auth.Issue(u)
	if err != nil {
		return boardError(c, err)
	}
	pub := u.User
	return c.JSON(status, authResponse{Token: token, User: &pub})
}

func getProjects(board *Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, board.listProjects(userID(c)))
	}
}

func getProject(board *Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := board.getProject(userID(c), c.Param("id"))
		if err != nil {
			return boardError(c, err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

// bindProject decodes a project body. A non-empty string is the reason the
// body was rejected.
func bindProject(c echo.Context) (domain.ProjectInput, string) {
	var in domain.ProjectInput
	if err := decodeBody(c, &in); err != nil {
		return in, "Invalid request body"
	}
	if err := in.Validate(); err != nil {
		return in, err.Error()
	}
	return in, ""
}

func postProject(board *Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		in, bad := bindProject(c)
		if bad != "" {
			return message(c, http.StatusBadRequest, bad)
		}
		return c.JSON(http.StatusCreated, board.createProject(userID(c), in))
	}
}

func putProject(board *Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		in, bad := bindProject(c)
		if bad != "" {
			return message(c, http.StatusBadRequest, bad)
		}
		p, err := board.updateProject(userID(c), c.Param("id"), in)
		if err != nil {
			return boardError(c, err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func deleteProject(board *Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := board.deleteProject(userID(c), c.Param("id")); err != nil {
			return boardError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getTasks(board *Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks, err := board.listTasks(userID(c), c.Param("id"))
		if err != nil {
			return boardError(c, err)
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func postTask(board *Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in domain.NewTask
		if err := decodeBody(c, &in); err != nil {
			return message(c, http.StatusBadRequest, "Invalid request body")
		}
		if in.Status == "" {
			in.Status = domain.StatusTodo
		}
		if err := in.Validate(); err != nil {
			return message(c, http.StatusBadRequest, err.Error())
		}
		t, err := board.createTask(userID(c), c.Param("id"), in)
		if err != nil {
			return boardError(c, err)
		}
		return c.JSON(http.StatusCreated, t)
	}
}

func putTask(board *Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var patch domain.TaskPatch
		if err := decodeBody(c, &patch); err != nil {
			return message(c, http.StatusBadRequest, "Invalid request body")
		}
		if patch.Empty() {
			return message(c, http.StatusBadRequest, "No fields to update")
		}
		if err := patch.Validate(); err != nil {
			return message(c, http.StatusBadRequest, err.Error())
		}
		t, err := board.updateTask(userID(c), c.Param("id"), c.Param("taskId"), patch)
		if err != nil {
			return boardError(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func deleteTask(board *Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := board.deleteTask(userID(c), c.Param("id"), c.Param("taskId")); err != nil {
			return boardError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
