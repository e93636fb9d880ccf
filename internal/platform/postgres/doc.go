// Package postgres adapts the sqlexec executor to PostgreSQL. It renders
// PostgreSQL placeholders and pagination, maps pgconn error codes onto the
// store error taxonomy, and embeds the PostgreSQL schema migrations.
package postgres
