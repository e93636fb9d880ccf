package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	goosedb "github.com/pressly/goose/v3/database"
)

// MigrationsTable records applied schema versions.
const MigrationsTable = "schema_migrations"

// MigrationState describes one known migration.
type MigrationState struct {
	Version   int64
	Source    string
	Applied   bool
	AppliedAt time.Time
}

func (db *DB) provider() (*goose.Provider, error) {
	st, err := goosedb.NewStore(db.target.gooseDialect(), MigrationsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration store: %w", err)
	}
	p, err := goose.NewProvider("", db.DB, db.target.Migrations, goose.WithStore(st))
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return p, nil
}

// Migrate applies every pending migration and returns the versions applied.
func (db *DB) Migrate(ctx context.Context) ([]int64, error) {
	p, err := db.provider()
	if err != nil {
		return nil, err
	}

	results, err := p.Up(ctx)
	applied := make([]int64, 0, len(results))
	for _, r := range results {
		db.logMigration(r)
		if r.Error == nil {
			applied = append(applied, r.Source.Version)
		}
	}
	if err != nil {
		db.logger.Error("failed to apply migrations", slog.String("error", err.Error()))
		return applied, fmt.Errorf("failed to apply migrations: %w", err)
	}
	db.logger.Info("migrations applied", slog.Int("count", len(applied)))
	return applied, nil
}

// MigrateDown rolls back the most recent migration. It returns the version
// rolled back, or 0 when nothing was applied.
func (db *DB) MigrateDown(ctx context.Context) (int64, error) {
	p, err := db.provider()
	if err != nil {
		return 0, err
	}

	r, err := p.Down(ctx)
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			db.logger.Info("no migrations to roll back")
			return 0, nil
		}
		db.logger.Error("failed to roll back migration", slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to roll back migration: %w", err)
	}
	db.logMigration(r)
	return r.Source.Version, nil
}

// MigrationStatus lists every known migration in version order.
func (db *DB) MigrationStatus(ctx context.Context) ([]MigrationState, error) {
	p, err := db.provider()
	if err != nil {
		return nil, err
	}

	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}
	out := make([]MigrationState, len(statuses))
	for i, s := range statuses {
		out[i] = MigrationState{
			Version:   s.Source.Version,
			Source:    s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		}
	}
	return out, nil
}

func (db *DB) logMigration(r *goose.MigrationResult) {
	if r == nil || r.Source == nil {
		return
	}
	attrs := []any{
		slog.Int64("version", r.Source.Version),
		slog.String("source", r.Source.Path),
		slog.String("direction", r.Direction),
		slog.Duration("duration", r.Duration),
	}
	if r.Error != nil {
		db.logger.Error("migration failed", append(attrs, slog.String("error", r.Error.Error()))...)
		return
	}
	db.logger.Info("migration applied", attrs...)
}
