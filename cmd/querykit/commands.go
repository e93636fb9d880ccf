package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/phrazzld/querykit/internal/api"
	"github.com/phrazzld/querykit/internal/api/middleware"
	"github.com/phrazzld/querykit/internal/console"
	"github.com/phrazzld/querykit/internal/demo"
	"github.com/phrazzld/querykit/internal/platform/sqlexec"
)

// DemoCmd runs the walkthrough against the configured store.
type DemoCmd struct{}

func (DemoCmd) Run(ctx context.Context, a *App) error {
	db, err := a.open(ctx, true)
	if err != nil {
		return err
	}
	defer a.closeDB(db)

	return demo.Run(ctx, db.Store(a.logger), console.NewRenderer(a.out, a.format))
}

// ConsoleCmd starts an interactive session reading from stdin.
type ConsoleCmd struct {
	NoPrompt bool `help:"Do not print a prompt; useful when piping intents."`
}

func (c *ConsoleCmd) Run(ctx context.Context, a *App) error {
	db, err := a.open(ctx, true)
	if err != nil {
		return err
	}
	defer a.closeDB(db)

	opts := []console.Option{console.WithFormat(a.format), console.WithLogger(a.logger)}
	if !c.NoPrompt && isTerminal(a.in) {
		fmt.Fprintf(a.out, "querykit console on %s; type help for intents\n", db.Engine())
		opts = append(opts, console.WithPrompt("querykit> "))
	}
	return console.NewSession(db.Store(a.logger), a.out, opts...).Run(ctx, a.in)
}

func isTerminal(r any) bool {
	f, ok := r.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// ServeCmd runs the HTTP server until interrupted.
type ServeCmd struct {
	Port int `help:"Listen port; overrides server.port."`
}

func (c *ServeCmd) Run(ctx context.Context, a *App) error {
	db, err := a.open(ctx, true)
	if err != nil {
		return err
	}
	defer a.closeDB(db)

	port := a.cfg.Server.Port
	if c.Port != 0 {
		port = c.Port
	}
	if a.cfg.Server.JWTSecret == "" {
		a.logger.Warn("server.jwt_secret is empty; /api is unauthenticated")
	}
	handler := api.NewRouter(db.Store(a.logger), api.RouterConfig{
		JWTSecret: a.cfg.Server.JWTSecret,
		Logger:    a.logger,
	})
	return api.Serve(ctx, handler, port, a.logger)
}

// TokenCmd prints a bearer token signed with server.jwt_secret.
type TokenCmd struct {
	Subject  string        `arg:"" help:"Token subject."`
	Lifetime time.Duration `default:"24h" help:"Token lifetime."`
}

func (c *TokenCmd) Run(a *App) error {
	if a.cfg.Server.JWTSecret == "" {
		return fmt.Errorf("server.jwt_secret is not configured")
	}
	token, err := middleware.IssueToken(a.cfg.Server.JWTSecret, c.Subject, c.Lifetime)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, token)
	return err
}

// intent runs one console intent in a fresh session and renders its result
// or its error.
func (a *App) intent(ctx context.Context, name string, args []string) error {
	db, err := a.open(ctx, true)
	if err != nil {
		return err
	}
	defer a.closeDB(db)

	return runIntent(ctx, db.Store(a.logger), a, name, args)
}

func runIntent(ctx context.Context, st *sqlexec.Store, a *App, name string, args []string) error {
	s := console.NewSession(st, a.out, console.WithFormat(a.format), console.WithLogger(a.logger))
	if err := s.Exec(ctx, append([]string{name}, args...)); err != nil {
		if rerr := s.Renderer().Error(err); rerr != nil {
			return err
		}
		return renderedError{err}
	}
	return nil
}

// FindCmd is the one-shot form of the console find intent.
type FindCmd struct {
	Args []string `arg:"" optional:"" passthrough:"" help:"Arguments as in the console."`
}

func (c *FindCmd) Run(ctx context.Context, a *App) error { return a.intent(ctx, "find", c.Args) }

// JoinCmd is the one-shot form of the console join intent.
type JoinCmd struct {
	Args []string `arg:"" optional:"" passthrough:"" help:"Arguments as in the console."`
}

func (c *JoinCmd) Run(ctx context.Context, a *App) error { return a.intent(ctx, "join", c.Args) }

// InsertCmd is the one-shot form of the console insert intent.
type InsertCmd struct {
	Args []string `arg:"" optional:"" passthrough:"" help:"Arguments as in the console."`
}

func (c *InsertCmd) Run(ctx context.Context, a *App) error { return a.intent(ctx, "insert", c.Args) }

// UpdateCmd is the one-shot form of the console update intent.
type UpdateCmd struct {
	Args []string `arg:"" optional:"" passthrough:"" help:"Arguments as in the console."`
}

func (c *UpdateCmd) Run(ctx context.Context, a *App) error { return a.intent(ctx, "update", c.Args) }

// DeleteCmd is the one-shot form of the console delete intent.
type DeleteCmd struct {
	Args []string `arg:"" optional:"" passthrough:"" help:"Arguments as in the console."`
}

func (c *DeleteCmd) Run(ctx context.Context, a *App) error { return a.intent(ctx, "delete", c.Args) }
