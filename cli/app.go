// Package cli implements the projectboard command tree on top of the session
// store and the view models.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"projectboard/apiclient"
	"projectboard/config"
	"projectboard/session"
	"projectboard/storage"
)

// ErrNotLoggedIn is returned by commands that need a session.
var ErrNotLoggedIn = errors.New("not logged in (run 'projectboard login' first)")

const userAgent = "projectboard-cli"

// App carries the configuration and I/O of one CLI invocation and builds the
// session store and REST client on first use.
type App struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Logger *log.Logger
	Config config.Config

	// HTTPClient, when set, replaces the client built from Config.Timeout.
	HTTPClient *http.Client
	// Storage, when set, replaces the storage selected by Config.Session.
	Storage session.Storage

	client  *apiclient.Client
	store   *session.Store
	closers []func() error
	styles  styles
}

func NewApp(cfg config.Config, logger *log.Logger) *App {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &App{In: os.Stdin, Out: os.Stdout, Err: os.Stderr, Logger: logger, Config: cfg}
}

// Run parses the global flags, executes the command named by args and
// releases any storage connection it opened.
func (a *App) Run(ctx context.Context, args []string) error {
	a.styles = newStyles(a.Out)
	defer a.Close()

	global := pflag.NewFlagSet("projectboard", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(io.Discard)
	apiURL := global.String("api-url", a.Config.APIBaseURL, "base URL of the project board API")
	store := global.String("session-store", a.Config.Session.Store, "session storage: file, memory, redis or table")
	file := global.String("session-file", a.Config.Session.File, "session file for the file store")
	profile := global.String("profile", a.Config.Profile, "session profile for the table store")
	timeout := global.Duration("timeout", a.Config.Timeout, "HTTP request timeout")
	debug := global.Bool("debug", a.Config.Debug, "log debug output to stderr")
	err := global.Parse(args)
	wantHelp := errors.Is(err, pflag.ErrHelp)
	if err != nil && !wantHelp {
		return usageErrorf("%s\n\nRun 'projectboard --help' for usage.", err)
	}
	root := a.Root()
	rest := global.Args()
	if wantHelp || len(rest) == 0 {
		root.PrintHelp(a.Out)
		fmt.Fprintf(a.Out, "\nGlobal flags:\n%s", global.FlagUsages())
		return nil
	}

	a.Config.APIBaseURL = *apiURL
	a.Config.Session.Store = strings.ToLower(*store)
	a.Config.Session.File = *file
	a.Config.Profile = *profile
	a.Config.Timeout = *timeout
	a.Config.Debug = *debug
	if a.Config.Debug {
		a.Logger.SetLevel(log.DebugLevel)
	}
	if err := a.Config.Validate(); err != nil {
		return usageErrorf("%v", err)
	}

	return root.Execute(ctx, rest, a.Out)
}

// Root returns the command tree.
func (a *App) Root() *Command {
	return &Command{
		Name:    "projectboard",
		Summary: "Manage projects and tasks from the terminal",
		Usage:   "projectboard [global flags] <command> [flags]",
		Subcommands: []*Command{
			a.loginCommand(),
			a.registerCommand(),
			a.logoutCommand(),
			a.whoamiCommand(),
			a.projectsCommand(),
			a.tasksCommand(),
		},
	}
}

// Close releases storage connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// session returns the session store, building it and the REST client on
// first use.
func (a *App) session(ctx context.Context) (*session.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	st := a.Storage
	if st == nil {
		var err error
		if st, err = a.openStorage(ctx); err != nil {
			return nil, err
		}
	}

	opts := []apiclient.Option{apiclient.WithLogger(a.Logger), apiclient.WithUserAgent(userAgent)}
	if a.HTTPClient != nil {
		opts = append(opts, apiclient.WithHTTPClient(a.HTTPClient))
	} else {
		opts = append(opts, apiclient.WithTimeout(a.Config.Timeout))
	}
	a.client = apiclient.New(a.Config.APIBaseURL, opts...)
	a.store = session.New(ctx, a.client, st, a.Logger)
	a.client.SetTokenSource(a.store)
	return a.store, nil
}

// api returns a REST client bound to an authenticated session.
func (a *App) api(ctx context.Context) (*apiclient.Client, error) {
	store, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	if store.State() != session.Authenticated {
		return nil, ErrNotLoggedIn
	}
	return a.client, nil
}

func (a *App) openStorage(ctx context.Context) (session.Storage, error) {
	cfg := a.Config.Session
	switch cfg.Store {
	case config.StoreFile, "":
		return storage.NewFile(cfg.File), nil
	case config.StoreMemory:
		return storage.NewMemory(), nil
	case config.StoreRedis:
		opts, err := config.RedisOptions(cfg.Redis)
		if err != nil {
			return nil, err
		}
		rc := redis.NewClient(opts)
		a.closers = append(a.closers, rc.Close)
		prefix := cfg.RedisPrefix
		if prefix == "" {
			prefix = "projectboard:session:" + a.Config.Profile
		}
		return storage.NewRedis(rc, prefix, cfg.TTL), nil
	case config.StoreTable:
		t, err := storage.NewTable(cfg.StorageConnectionString, cfg.Table, a.Config.Profile)
		if err != nil {
			return nil, fmt.Errorf("session table: %w", err)
		}
		tctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := t.EnsureTable(tctx); err != nil {
			return nil, fmt.Errorf("session table: %w", err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown session store %q", cfg.Store)
}

// failure is a command error whose text is the message shown by a view.
type failure struct {
	msg string
	err error
}

func (f *failure) Error() string { return f.msg }
func (f *failure) Unwrap() error { return f.err }

func viewError(msg string, err error) error {
	if err == nil {
		return nil
	}
	if msg == "" {
		return err
	}
	return &failure{msg: msg, err: err}
}

// ExitCode maps a command error to a process exit status: 0 on success, 2
// for usage errors and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var uerr *UsageError
	if errors.As(err, &uerr) {
		return 2
	}
	return 1
}
