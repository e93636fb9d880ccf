// Package database opens the configured store, sizes its connection pool and
// applies the embedded schema migrations with goose. The database URL selects
// the engine: postgres:// and postgresql:// use pgx, sqlite:// and sqlite:
// use modernc.org/sqlite.
package database
