// Package sqlexec executes query statements against a database/sql store.
//
// It renders Select, Join, Insert, Update and Delete statements into SQL
// through a Dialect, runs them on a connection pool or inside a transaction,
// and normalizes returned rows into schema.Records. Driver errors are
// translated into the store error taxonomy so callers can tell integrity
// violations from an unreachable store.
//
// Store is the entry point; Store.RunInTransaction and Store.Begin provide
// transactions. Each transaction owns one *sql.Tx from begin to commit or
// rollback.
package sqlexec
