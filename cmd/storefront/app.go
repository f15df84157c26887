package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/session"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
)

// Authenticator is what the CLI needs from the session layer.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*session.Session, error)
	Register(ctx context.Context, req api.RegisterRequest) (string, error)
	Resume(ctx context.Context) (*session.Session, error)
	Logout(ctx context.Context, s *session.Session) error
}

type AppParams struct {
	Auth   Authenticator
	Logger *logger.Logger
	Stdout io.Writer
	Stdin  io.Reader
}

// App runs one CLI command against a resumed session.
type App struct {
	auth     Authenticator
	logg     *logger.Logger
	out      io.Writer
	in       *bufio.Reader
	commands map[string]command
}

type command struct {
	usage string
	// guest commands run without a resumed session.
	guest bool
	run   func(ctx context.Context, inv *invocation, args []string) error
}

// invocation is one parsed command line.
type invocation struct {
	app     *App
	session *session.Session
	flags   *flag.FlagSet
	args    []string
}

func NewApp(params AppParams) (*App, error) {
	if params.Auth == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authenticator is required")
	}
	if params.Stdout == nil {
		params.Stdout = io.Discard
	}
	if params.Stdin == nil {
		params.Stdin = strings.NewReader("")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	app := &App{
		auth: params.Auth,
		logg: params.Logger,
		out:  params.Stdout,
		in:   bufio.NewReader(params.Stdin),
	}
	app.commands = app.commandTable()
	return app, nil
}

// Run executes args[0] with the remaining arguments. The returned error is
// already typed; callers print its user message.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage()
		return nil
	}
	name := args[0]
	cmd, ok := a.commands[name]
	if !ok {
		a.usage()
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown command %q", name))
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	inv := &invocation{app: a, flags: fs}
	ctx = a.logg.WithField(ctx, "command", name)

	if !cmd.guest {
		s, err := a.auth.Resume(ctx)
		if err != nil {
			return err
		}
		inv.session = s
		ctx = s.LogContext(ctx)
	}
	return cmd.run(ctx, inv, args[1:])
}

// parse parses flags and requires at least min positional arguments.
func (inv *invocation) parse(args []string, min int, positional string) error {
	if err := inv.flags.Parse(args); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	inv.args = inv.flags.Args()
	if len(inv.args) < min {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage: "+inv.flags.Name()+" "+positional)
	}
	return nil
}

func (inv *invocation) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(inv.app.out, format, a...)
}

func (a *App) usage() {
	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	_, _ = fmt.Fprintln(a.out, "usage: storefront <command> [flags] [args]")
	for _, name := range names {
		_, _ = fmt.Fprintf(a.out, "  %-16s %s\n", name, a.commands[name].usage)
	}
}
