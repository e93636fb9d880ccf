// Package store defines the data-access contract querykit callers program
// against: reading records (Querier), changing them (Mutator), grouping both
// into atomic units (Coordinator), and the error taxonomy every
// implementation reports through. The SQL implementation lives in
// internal/platform/sqlexec; callers depend only on these interfaces.
package store
