package store

import (
	"context"

	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
)

// Querier reads records. Reads never change the dataset.
type Querier interface {
	// Find returns the records the statement selects. A Limit(0) statement
	// returns an empty slice without contacting the store, and an offset past
	// the end of the result returns an empty slice, not an error.
	Find(ctx context.Context, s query.Select) ([]schema.Record, error)

	// FindWithJoin returns one flat record per primary record, carrying the
	// projected fields of the matching joined record or nil when none matches.
	FindWithJoin(ctx context.Context, j query.Join) ([]schema.Record, error)
}

// Mutator is the only way the dataset changes.
type Mutator interface {
	// Insert creates every row or none. Created records carry their assigned
	// identity and store defaults and come back in input order.
	Insert(ctx context.Context, s query.Insert) ([]schema.Record, error)

	// Update returns the post-update state of every matched record, ordered
	// by identity. No match is an empty slice, not an error.
	Update(ctx context.Context, s query.Update) ([]schema.Record, error)

	// Delete returns the pre-deletion state of every removed record, ordered
	// by identity. No match is an empty slice, not an error.
	Delete(ctx context.Context, s query.Delete) ([]schema.Record, error)
}

// Executor runs queries and mutations, either directly against the store or
// inside a transaction.
type Executor interface {
	Querier
	Mutator
}

// Coordinator runs a body of operations as one atomic unit.
type Coordinator interface {
	// RunInTransaction calls fn with an Executor bound to a new transaction.
	// The transaction commits when fn returns nil and rolls back otherwise;
	// the returned error then matches ErrTransactionAborted.
	RunInTransaction(ctx context.Context, fn TxFn) error
}

// Store is a complete data-access handle.
type Store interface {
	Executor
	Coordinator
}
