package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/pflag"

	"projectboard/session"
	"projectboard/storage"
)

type passwordFlags struct {
	password string
	stdin    bool
}

func (p *passwordFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&p.password, "password", "", "account password (visible in shell history; prefer --password-stdin)")
	fs.BoolVar(&p.stdin, "password-stdin", false, "read the password from the first line of stdin")
}

func (p *passwordFlags) read(in io.Reader) (string, error) {
	if !p.stdin {
		return p.password, nil
	}
	if p.password != "" {
		return "", usageErrorf("--password and --password-stdin are mutually exclusive")
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *App) loginCommand() *Command {
	var pw passwordFlags
	return &Command{
		Name:    "login",
		Summary: "Log in and save the session",
		Description: `Log in with an email address and password.

The session is saved to the configured session store and reused by every
later command until 'projectboard logout'.`,
		Usage: "projectboard login <email> [--password-stdin | --password <password>]",
		Examples: []Example{
			{Description: "Log in, reading the password from a file", Command: "projectboard login a@b.com --password-stdin < pw.txt"},
		},
		Flags: func() *pflag.FlagSet {
			pw = passwordFlags{}
			fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
			pw.register(fs)
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageErrorf("login takes exactly one argument: the email address")
			}
			password, err := pw.read(a.In)
			if err != nil {
				return err
			}
			store, err := a.session(ctx)
			if err != nil {
				return err
			}
			if err := store.LogIn(ctx, args[0], password); err != nil {
				return err
			}
			u := store.User()
			fmt.Fprintf(a.Out, "Logged in as %s <%s>\n", u.Username, u.Email)
			return nil
		},
	}
}

func (a *App) registerCommand() *Command {
	var pw passwordFlags
	return &Command{
		Name:    "register",
		Summary: "Create an account and log in",
		Usage:   "projectboard register <username> <email> [--password-stdin | --password <password>]",
		Flags: func() *pflag.FlagSet {
			pw = passwordFlags{}
			fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
			pw.register(fs)
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 2 {
				return usageErrorf("register takes two arguments: username and email")
			}
			password, err := pw.read(a.In)
			if err != nil {
				return err
			}
			store, err := a.session(ctx)
			if err != nil {
				return err
			}
			if err := store.Register(ctx, args[0], args[1], password); err != nil {
				return err
			}
			u := store.User()
			fmt.Fprintf(a.Out, "Registered and logged in as %s <%s>\n", u.Username, u.Email)
			return nil
		},
	}
}

func (a *App) logoutCommand() *Command {
	return &Command{
		Name:    "logout",
		Summary: "Forget the saved session",
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unexpected argument: %s", args[0])
			}
			store, err := a.session(ctx)
			if err != nil {
				return err
			}
			store.LogOut(ctx)
			fmt.Fprintln(a.Out, "Logged out")
			return nil
		},
	}
}

func (a *App) whoamiCommand() *Command {
	return &Command{
		Name:    "whoami",
		Summary: "Show the logged in user",
		Description: `Show the user of the saved session.

The token's claims are decoded for display only; they are not verified.`,
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unexpected argument: %s", args[0])
			}
			store, err := a.session(ctx)
			if err != nil {
				return err
			}
			snap := store.Snapshot()
			if snap.State() != session.Authenticated {
				return ErrNotLoggedIn
			}

			tw := newTable(a.Out)
			fmt.Fprintf(tw, "User:\t%s <%s>\n", snap.User.Username, snap.User.Email)
			fmt.Fprintf(tw, "User ID:\t%s\n", snap.User.ID)
			fmt.Fprintf(tw, "API:\t%s\n", a.Config.APIBaseURL)
			fmt.Fprintf(tw, "Session store:\t%s\n", a.describeStore())
			if exp, ok := tokenExpiry(snap.Token); ok {
				fmt.Fprintf(tw, "Token expires:\t%s\n", exp.UTC().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func (a *App) describeStore() string {
	switch s := a.Config.Session.Store; s {
	case "", "file":
		return "file " + storage.NewFile(a.Config.Session.File).Path()
	case "table":
		return "table " + a.Config.Session.Table + " (profile " + a.Config.Profile + ")"
	default:
		return s
	}
}

// tokenExpiry reads the exp claim of a JWT without verifying it.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(exp), 0), true
}
