package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/querykit/internal/config"
	"github.com/phrazzld/querykit/internal/platform/sqlexec"
	"github.com/phrazzld/querykit/internal/redact"
	"github.com/phrazzld/querykit/internal/store"
	_ "modernc.org/sqlite" // sqlite driver
)

// DB is an open, pinged connection pool together with the dialect and
// migrations of its engine.
type DB struct {
	*sql.DB
	target Target
	logger *slog.Logger
}

// Open connects to the database named by cfg.URL, applies the pool settings
// and verifies the connection within cfg.ConnectTimeout. A database that
// cannot be reached yields an error matching store.ErrStoreUnavailable.
// When cfg.AutoMigrate is set, pending migrations are applied.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "database"))

	target, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(target.DriverName, target.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if target.Memory {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		logger.Error("failed to ping database",
			slog.String("url", redact.URL(cfg.URL)),
			slog.String("error", redact.Error(err)))
		return nil, &store.UnavailableError{Operation: "connect", Err: err}
	}

	logger.Info("database connection established",
		slog.String("engine", string(target.Engine)),
		slog.String("url", redact.URL(cfg.URL)))

	db := &DB{DB: sqlDB, target: target, logger: logger}
	if cfg.AutoMigrate {
		if _, err := db.Migrate(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	return db, nil
}

// Engine returns the engine behind the connection.
func (db *DB) Engine() Engine { return db.target.Engine }

// Dialect returns the statement dialect of the engine.
func (db *DB) Dialect() sqlexec.Dialect { return db.target.Dialect }

// Store returns a store.Store over the connection pool.
func (db *DB) Store(logger *slog.Logger) *sqlexec.Store {
	if logger == nil {
		logger = db.logger
	}
	return sqlexec.New(db.DB, db.target.Dialect, logger)
}
