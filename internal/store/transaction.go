package store

import (
	"context"
)

// TxFn is a function that executes within a transaction.
// It receives the context and an Executor bound to the transaction, and returns an error if the operation fails.
// The transaction is committed if the function returns nil, or rolled back if it returns an error.
type TxFn func(ctx context.Context, tx Executor) error

// TxState is the lifecycle state of a transaction. Committed and Aborted are
// final.
type TxState int

// Transaction states.
const (
	TxStarted TxState = iota
	TxCommitted
	TxAborted
)

// String returns the lower-case state name.
func (s TxState) String() string {
	switch s {
	case TxStarted:
		return "started"
	case TxCommitted:
		return "committed"
	case TxAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Final reports whether no further operation may run in the transaction.
func (s TxState) Final() bool {
	return s == TxCommitted || s == TxAborted
}

// Transact runs fn in a transaction and returns its value only when the
// transaction commits. On any failure the zero value is returned, so a body
// cannot leak partial results.
func Transact[T any](ctx context.Context, c Coordinator, fn func(ctx context.Context, tx Executor) (T, error)) (T, error) {
	var result T
	err := c.RunInTransaction(ctx, func(ctx context.Context, tx Executor) error {
		v, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
