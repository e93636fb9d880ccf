package testdb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/querykit/internal/ciutil"
	"github.com/phrazzld/querykit/internal/config"
	"github.com/phrazzld/querykit/internal/platform/database"
	"github.com/phrazzld/querykit/internal/platform/sqlexec"
	"github.com/phrazzld/querykit/internal/store"
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

// Logger discards output unless the test runs with -v, in which case it
// writes through t.Log.
func Logger(t *testing.T) *slog.Logger {
	t.Helper()
	if !testing.Verbose() {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(tWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type tWriter struct{ t *testing.T }

func (w tWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func testConfig(url string) config.DatabaseConfig {
	return config.DatabaseConfig{
		URL:             url,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnectTimeout:  TestTimeout,
		AutoMigrate:     true,
	}
}

// Open returns a migrated SQLite database private to the test. It is closed
// when the test ends.
func Open(t *testing.T) *database.DB {
	t.Helper()
	url := "sqlite://" + filepath.Join(t.TempDir(), "querykit.db")
	return open(t, url)
}

// OpenPostgres returns a migrated PostgreSQL database with every table
// emptied, or skips the test when DATABASE_URL is not set.
func OpenPostgres(t *testing.T) *database.DB {
	t.Helper()
	url := ciutil.TestDatabaseURL(Logger(t))
	if url == "" {
		if ciutil.IsCI() {
			t.Skip("DATABASE_URL not set in CI - add a PostgreSQL service to run integration tests")
		}
		t.Skip("DATABASE_URL not set - skipping integration test")
	}
	db := open(t, url)

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	_, err := db.ExecContext(ctx, `TRUNCATE tasks, categories, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "Failed to reset test database")
	return db
}

func open(t *testing.T, url string) *database.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := database.Open(ctx, testConfig(url), Logger(t))
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close database: %v", err)
		}
	})
	return db
}

// NewStore returns a store over a fresh SQLite database.
func NewStore(t *testing.T) *sqlexec.Store {
	t.Helper()
	return Open(t).Store(Logger(t))
}

// WithTx executes fn within a transaction that is rolled back afterwards,
// unless fn already finished it.
func WithTx(t *testing.T, s *sqlexec.Store, fn func(t *testing.T, tx *sqlexec.Tx)) {
	t.Helper()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err, "Failed to begin transaction")

	defer func() {
		err := tx.Rollback(context.Background())
		// ErrTransactionClosed is expected if fn committed or the tx aborted
		if err != nil && !errors.Is(err, store.ErrTransactionClosed) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}
