package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/querykit/internal/platform/logger"
	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
)

// Tx is one transaction. It owns its *sql.Tx for its whole life and runs
// operations one at a time, in submission order. A statement the store
// rejects aborts the transaction; once committed or aborted, every further
// call returns store.ErrTransactionClosed.
type Tx struct {
	id     string
	sqlTx  *sql.Tx
	exec   executor
	logger *slog.Logger

	mu    sync.Mutex
	state store.TxState
}

var _ store.Executor = (*Tx)(nil)

// ID returns the transaction identifier used in log lines.
func (t *Tx) ID() string { return t.id }

// State returns the current lifecycle state.
func (t *Tx) State() store.TxState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Find implements store.Querier.
func (t *Tx) Find(ctx context.Context, stmt query.Select) ([]schema.Record, error) {
	return t.run(ctx, "find", func(ctx context.Context) ([]schema.Record, error) {
		return t.exec.find(ctx, stmt)
	})
}

// FindWithJoin implements store.Querier.
func (t *Tx) FindWithJoin(ctx context.Context, stmt query.Join) ([]schema.Record, error) {
	return t.run(ctx, "join", func(ctx context.Context) ([]schema.Record, error) {
		return t.exec.findWithJoin(ctx, stmt)
	})
}

// Insert implements store.Mutator.
func (t *Tx) Insert(ctx context.Context, stmt query.Insert) ([]schema.Record, error) {
	return t.run(ctx, "insert", func(ctx context.Context) ([]schema.Record, error) {
		return t.exec.insert(ctx, stmt)
	})
}

// Update implements store.Mutator.
func (t *Tx) Update(ctx context.Context, stmt query.Update) ([]schema.Record, error) {
	return t.run(ctx, "update", func(ctx context.Context) ([]schema.Record, error) {
		return t.exec.update(ctx, stmt)
	})
}

// Delete implements store.Mutator.
func (t *Tx) Delete(ctx context.Context, stmt query.Delete) ([]schema.Record, error) {
	return t.run(ctx, "delete", func(ctx context.Context) ([]schema.Record, error) {
		return t.exec.delete(ctx, stmt)
	})
}

func (t *Tx) run(
	ctx context.Context,
	op string,
	fn func(ctx context.Context) ([]schema.Record, error),
) ([]schema.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Final() {
		return nil, fmt.Errorf("%w: %s after transaction %s", store.ErrTransactionClosed, op, t.state)
	}

	recs, err := fn(logger.WithLogger(ctx, t.logger))
	if err != nil {
		// Configuration errors never reached the store and leave it usable.
		if !errors.Is(err, store.ErrConfiguration) {
			if rbErr := t.abortLocked(op + " failed"); rbErr != nil {
				return nil, errors.Join(err, rbErr)
			}
		}
		return nil, err
	}
	return recs, nil
}

// Commit makes every effect of the transaction durable and visible.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Final() {
		return fmt.Errorf("%w: commit after transaction %s", store.ErrTransactionClosed, t.state)
	}

	if err := t.sqlTx.Commit(); err != nil {
		t.state = store.TxAborted
		err = translate(t.exec.dialect, nil, "commit", err)
		t.logger.Error("failed to commit transaction", slog.String("error", err.Error()))
		return err
	}
	t.state = store.TxCommitted
	t.logger.Debug("transaction committed successfully")
	return nil
}

// Rollback discards every effect of the transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Final() {
		return fmt.Errorf("%w: rollback after transaction %s", store.ErrTransactionClosed, t.state)
	}
	return t.abortLocked("rollback requested")
}

func (t *Tx) abortLocked(reason string) error {
	t.state = store.TxAborted
	// The driver already rolled back when the context was cancelled.
	if err := t.sqlTx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		err = translate(t.exec.dialect, nil, "rollback", err)
		t.logger.Error("failed to roll back transaction",
			slog.String("reason", reason),
			slog.String("error", err.Error()))
		return err
	}
	t.logger.Debug("transaction rolled back", slog.String("reason", reason))
	return nil
}
