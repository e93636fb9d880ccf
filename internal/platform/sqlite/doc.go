// Package sqlite adapts the sqlexec executor to SQLite through the pure-Go
// modernc.org/sqlite driver. It is the store used by tests and by the
// console when no PostgreSQL URL is configured.
package sqlite
