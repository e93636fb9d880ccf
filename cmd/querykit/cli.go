package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/phrazzld/querykit/internal/config"
	"github.com/phrazzld/querykit/internal/console"
	"github.com/phrazzld/querykit/internal/platform/database"
	"github.com/phrazzld/querykit/internal/platform/logger"
	"github.com/phrazzld/querykit/internal/redact"
	"github.com/phrazzld/querykit/internal/schema"
)

// CLI is the complete command structure of querykit.
type CLI struct {
	Config      string `help:"Path to a YAML config file (default ./querykit.yaml)."`
	DatabaseURL string `name:"database-url" help:"Store URL: postgres://..., sqlite://<path> or sqlite::memory:."`
	LogLevel    string `help:"Log level: debug, info, warn or error."`
	LogFormat   string `help:"Log format: json, text or human."`
	Format      string `short:"F" help:"Output format of records." enum:"table,json,yaml" default:"table"`

	Migrate MigrateCmd `cmd:"" help:"Apply, revert or inspect schema migrations."`
	Demo    DemoCmd    `cmd:"" help:"Run the scripted CRUD walkthrough."`
	Console ConsoleCmd `cmd:"" help:"Start the interactive record console."`
	Serve   ServeCmd   `cmd:"" help:"Serve the records over HTTP."`
	Token   TokenCmd   `cmd:"" help:"Issue a bearer token for the HTTP API."`

	Find   FindCmd   `cmd:"" help:"Find records (console syntax)."`
	Join   JoinCmd   `cmd:"" help:"Left join two entities (console syntax)."`
	Insert InsertCmd `cmd:"" help:"Insert records (console syntax)."`
	Update UpdateCmd `cmd:"" help:"Update records (console syntax)."`
	Delete DeleteCmd `cmd:"" help:"Delete records (console syntax)."`
}

// App carries what commands share: configuration, logger and streams.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
	format console.Format
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	var (
		cli  CLI
		code = -1
	)
	parser, err := kong.New(&cli,
		kong.Name("querykit"),
		kong.Description("Compose queries and transactions against PostgreSQL or SQLite."),
		kong.UsageOnError(),
		kong.Writers(out, errOut),
		kong.Exit(func(c int) { code = c }),
	)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	kctx, err := parser.Parse(args)
	if code >= 0 {
		return code
	}
	if err != nil {
		parser.FatalIfErrorf(err)
		if code < 0 {
			code = 2
		}
		return code
	}

	app, err := cli.app(in, out, errOut)
	if err != nil {
		fmt.Fprintln(errOut, "querykit:", redact.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	if err := kctx.Run(app); err != nil {
		app.logger.Debug("command failed", slog.String("command", kctx.Command()), slog.String("error", err.Error()))
		var rendered renderedError
		if !errors.As(err, &rendered) {
			fmt.Fprintln(errOut, "querykit:", redact.Error(err))
		}
		return 1
	}
	return 0
}

// app loads configuration, applies flag overrides and sets up logging. Logs
// go to errOut so records on out stay machine readable.
func (c *CLI) app(in io.Reader, out, errOut io.Writer) (*App, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.DatabaseURL != "" {
		cfg.Database.URL = c.DatabaseURL
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Log.Format = c.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(errOut, cfg.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	format, err := console.ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, logger: log, in: in, out: out, format: format}, nil
}

// open connects to the configured store.
func (a *App) open(ctx context.Context, autoMigrate bool) (*database.DB, error) {
	dbCfg := a.cfg.Database
	dbCfg.AutoMigrate = dbCfg.AutoMigrate && autoMigrate
	return database.Open(ctx, dbCfg, a.logger)
}

func (a *App) closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		a.logger.Error("failed to close database", slog.String("error", err.Error()))
	}
}

// renderedError marks an error the command already wrote to the output.
type renderedError struct{ err error }

func (e renderedError) Error() string { return e.err.Error() }
func (e renderedError) Unwrap() error { return e.err }

// MigrateCmd groups the migration subcommands.
type MigrateCmd struct {
	Up     MigrateUpCmd     `cmd:"" help:"Apply every pending migration."`
	Down   MigrateDownCmd   `cmd:"" help:"Revert the latest applied migration."`
	Status MigrateStatusCmd `cmd:"" help:"List migrations and whether they are applied."`
}

// MigrateUpCmd applies pending migrations.
type MigrateUpCmd struct{}

func (MigrateUpCmd) Run(ctx context.Context, a *App) error {
	db, err := a.open(ctx, false)
	if err != nil {
		return err
	}
	defer a.closeDB(db)

	applied, err := db.Migrate(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(a.out, "no pending migrations")
		return nil
	}
	for _, v := range applied {
		fmt.Fprintf(a.out, "applied %05d\n", v)
	}
	return nil
}

// MigrateDownCmd reverts one migration.
type MigrateDownCmd struct{}

func (MigrateDownCmd) Run(ctx context.Context, a *App) error {
	db, err := a.open(ctx, false)
	if err != nil {
		return err
	}
	defer a.closeDB(db)

	v, err := db.MigrateDown(ctx)
	if err != nil {
		return err
	}
	if v == 0 {
		fmt.Fprintln(a.out, "no applied migrations")
		return nil
	}
	fmt.Fprintf(a.out, "reverted %05d\n", v)
	return nil
}

// MigrateStatusCmd prints the migration table.
type MigrateStatusCmd struct{}

func (MigrateStatusCmd) Run(ctx context.Context, a *App) error {
	db, err := a.open(ctx, false)
	if err != nil {
		return err
	}
	defer a.closeDB(db)

	states, err := db.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	recs := make([]schema.Record, len(states))
	for i, s := range states {
		applied := ""
		if s.Applied {
			applied = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		recs[i] = schema.Record{
			"version": strconv.FormatInt(s.Version, 10),
			"source":  s.Source,
			"applied": applied,
		}
	}
	return console.NewRenderer(a.out, a.format).Records([]string{"version", "source", "applied"}, recs)
}
