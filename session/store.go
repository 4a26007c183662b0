package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"projectboard/domain"
	"projectboard/storage"
)

// ErrNotAuthenticated is returned by operations that need an active session.
var ErrNotAuthenticated = errors.New("not logged in")

var errMalformedAuth = errors.New("malformed auth response")

// Storage persists the session record. Implementations write the token and
// user keys together and must be safe for concurrent use.
type Storage interface {
	Load(ctx context.Context) (storage.Record, error)
	Save(ctx context.Context, rec storage.Record) error
	Clear(ctx context.Context) error
}

// Authenticator performs the credential exchanges against the backend.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error)
	Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error)
}

// State is the position of the session in its two-state lifecycle.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Session is a point-in-time copy of the session fields.
type Session struct {
	User  *domain.User
	Token string
}

// State reports whether the copy holds an identity.
func (s Session) State() State {
	if s.User != nil && s.Token != "" {
		return Authenticated
	}
	return Anonymous
}

// Store owns the authentication state of one running client. All mutation
// goes through its methods; mutations are serialized so that a slow response
// can never overwrite the result of a later call.
type Store struct {
	auth    Authenticator
	storage Storage
	logger  *log.Logger

	op sync.Mutex // held for the whole of LogIn, Register, LogOut and the setters

	mu    sync.RWMutex
	user  *domain.User
	token string
}

// New builds a Store and restores the persisted session. Storage that is
// empty, partial or unreadable yields an anonymous session; the problem is
// logged, never returned.
func New(ctx context.Context, auth Authenticator, st Storage, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Store{auth: auth, storage: st, logger: logger}
	s.restore(ctx)
	return s
}

// Reload discards the in-memory state and reads storage again.
func (s *Store) Reload(ctx context.Context) {
	s.op.Lock()
	defer s.op.Unlock()
	s.restore(ctx)
}

func (s *Store) restore(ctx context.Context) {
	user, token := s.readStorage(ctx)
	s.mu.Lock()
	s.user, s.token = user, token
	s.mu.Unlock()
}

func (s *Store) readStorage(ctx context.Context) (*domain.User, string) {
	rec, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("session: error reading stored session")
		return nil, ""
	}
	if rec.Empty() {
		return nil, ""
	}
	if rec.Token == "" || len(rec.User) == 0 {
		s.logger.WithFields(log.Fields{
			"has_token": rec.Token != "",
			"has_user":  len(rec.User) != 0,
		}).Warn("session: stored session is incomplete, starting logged out")
		return nil, ""
	}
	var user *domain.User
	if err := sonic.Unmarshal(rec.User, &user); err != nil {
		s.logger.WithError(err).Warn("session: error reading stored user")
		return nil, ""
	}
	if user == nil {
		s.logger.Warn("session: stored user is empty, starting logged out")
		return nil, ""
	}
	return user, rec.Token
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{User: cloneUser(s.user), Token: s.token}
}

// State reports Anonymous or Authenticated.
func (s *Store) State() State {
	return s.Snapshot().State()
}

// User returns a copy of the authenticated user, or nil.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.user)
}

// Token returns the bearer token, or "" when logged out. It satisfies
// apiclient.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// LogIn exchanges identifier and password for a session. On success the new
// session is persisted before LogIn returns. On failure the session is left
// exactly as it was.
func (s *Store) LogIn(ctx context.Context, identifier, password string) error {
	if strings.TrimSpace(identifier) == "" {
		return &domain.ValidationError{Field: "email", Message: "Email is required."}
	}
	if password == "" {
		return &domain.ValidationError{Field: "password", Message: "Password is required."}
	}

	s.op.Lock()
	defer s.op.Unlock()

	res, err := s.auth.Login(ctx, domain.Credentials{Email: identifier, Password: password})
	if err != nil {
		s.logger.WithError(err).Warn("session: login failed")
		return authFailure(err, "Login failed")
	}
	if err := s.commit(ctx, res.User, res.Token); err != nil {
		return err
	}
	s.logger.WithField("user", res.User.ID).Info("session: logged in")
	return nil
}

// Register creates an account and logs into it, with the same contract as
// LogIn.
func (s *Store) Register(ctx context.Context, username, email, password string) error {
	switch {
	case strings.TrimSpace(username) == "":
		return &domain.ValidationError{Field: "username", Message: "Username is required."}
	case strings.TrimSpace(email) == "":
		return &domain.ValidationError{Field: "email", Message: "Email is required."}
	case password == "":
		return &domain.ValidationError{Field: "password", Message: "Password is required."}
	}

	s.op.Lock()
	defer s.op.Unlock()

	res, err := s.auth.Register(ctx, domain.Registration{Username: username, Email: email, Password: password})
	if err != nil {
		s.logger.WithError(err).Warn("session: registration failed")
		return authFailure(err, "Registration failed")
	}
	if err := s.commit(ctx, res.User, res.Token); err != nil {
		return err
	}
	s.logger.WithField("user", res.User.ID).Info("session: registered")
	return nil
}

// LogOut clears the session in memory and in storage. It is idempotent and
// never fails; a storage error is logged.
func (s *Store) LogOut(ctx context.Context) {
	s.op.Lock()
	defer s.op.Unlock()
	s.clear(ctx)
}

// SetUser replaces the profile of the current session and persists it along
// with the existing token. A nil user ends the session.
func (s *Store) SetUser(ctx context.Context, user *domain.User) error {
	s.op.Lock()
	defer s.op.Unlock()

	if user == nil {
		s.clear(ctx)
		return nil
	}
	token := s.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	return s.commit(ctx, user, token)
}

// SetToken replaces the bearer of the current session and persists it along
// with the existing user. An empty token ends the session.
func (s *Store) SetToken(ctx context.Context, token string) error {
	s.op.Lock()
	defer s.op.Unlock()

	if token == "" {
		s.clear(ctx)
		return nil
	}
	user := s.User()
	if user == nil {
		return ErrNotAuthenticated
	}
	return s.commit(ctx, user, token)
}

// commit persists the pair and only then publishes it in memory. A pair
// missing either half is rejected before storage is touched. Callers hold op.
func (s *Store) commit(ctx context.Context, user *domain.User, token string) error {
	if user == nil || token == "" {
		s.logger.WithFields(log.Fields{
			"has_token": token != "",
			"has_user":  user != nil,
		}).Warn("session: auth response is incomplete, session unchanged")
		return &domain.TransportError{Op: "session", Err: errMalformedAuth}
	}
	raw, err := sonic.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}
	if err := s.storage.Save(ctx, storage.Record{Token: token, User: raw}); err != nil {
		return fmt.Errorf("session: persist session: %w", err)
	}
	s.mu.Lock()
	s.user, s.token = cloneUser(user), token
	s.mu.Unlock()
	return nil
}

func (s *Store) clear(ctx context.Context) {
	s.mu.Lock()
	s.user, s.token = nil, ""
	s.mu.Unlock()
	if err := s.storage.Clear(ctx); err != nil {
		s.logger.WithError(err).Error("session: error removing stored session")
		return
	}
	s.logger.Debug("session: logged out")
}

// authFailure turns a backend rejection into an AuthenticationError carrying
// the backend message or fallback. Transport failures pass through.
func authFailure(err error, fallback string) error {
	var terr *domain.TransportError
	if errors.As(err, &terr) {
		return err
	}
	status := 0
	var (
		aerr *domain.AuthenticationError
		perr *domain.APIError
		nerr *domain.NotFoundError
	)
	switch {
	case errors.As(err, &aerr):
		status = aerr.Status
	case errors.As(err, &perr):
		status = perr.Status
	case errors.As(err, &nerr):
		status = 404
	}
	return &domain.AuthenticationError{Status: status, Message: domain.Message(err, fallback)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
