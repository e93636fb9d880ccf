package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/querykit/internal/platform/logger"
	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
)

// Store implements store.Store over a database/sql connection pool.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New creates a Store. A nil logger means slog.Default().
func New(db *sql.DB, dialect Dialect, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		db:      db,
		dialect: dialect,
		logger: log.With(
			slog.String("component", "sqlexec"),
			slog.String("dialect", dialect.Name()),
		),
	}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the dialect statements are rendered in.
func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) exec() executor {
	return executor{db: s.db, dialect: s.dialect, logger: s.logger}
}

// Find implements store.Querier.
func (s *Store) Find(ctx context.Context, stmt query.Select) ([]schema.Record, error) {
	return s.exec().find(ctx, stmt)
}

// FindWithJoin implements store.Querier.
func (s *Store) FindWithJoin(ctx context.Context, stmt query.Join) ([]schema.Record, error) {
	return s.exec().findWithJoin(ctx, stmt)
}

// Insert implements store.Mutator. Batches run in their own transaction, so a
// failing row leaves nothing behind; the error is the row's failure itself.
func (s *Store) Insert(ctx context.Context, stmt query.Insert) ([]schema.Record, error) {
	if len(stmt.Rows()) <= 1 {
		return s.exec().insert(ctx, stmt)
	}
	recs, err := store.Transact(ctx, s, func(ctx context.Context, tx store.Executor) ([]schema.Record, error) {
		return tx.Insert(ctx, stmt)
	})
	var abort *store.AbortError
	if errors.As(err, &abort) {
		return nil, abort.Err
	}
	return recs, err
}

// Update implements store.Mutator.
func (s *Store) Update(ctx context.Context, stmt query.Update) ([]schema.Record, error) {
	return s.exec().update(ctx, stmt)
}

// Delete implements store.Mutator.
func (s *Store) Delete(ctx context.Context, stmt query.Delete) ([]schema.Record, error) {
	return s.exec().delete(ctx, stmt)
}

// Begin starts a transaction the caller must finish with Commit or Rollback.
// RunInTransaction is preferred; Begin serves session-scoped transactions
// such as the console's begin/commit/rollback.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	id := uuid.NewString()
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("tx_id", id))

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		err = translate(s.dialect, nil, "begin", err)
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return nil, err
	}
	log.Debug("transaction started")

	return &Tx{
		id:     id,
		sqlTx:  sqlTx,
		exec:   executor{db: sqlTx, dialect: s.dialect, logger: log},
		logger: log,
		state:  store.TxStarted,
	}, nil
}

// RunInTransaction executes fn within a transaction.
// If fn returns an error, or any statement inside it fails, the transaction
// is rolled back and the returned error matches store.ErrTransactionAborted
// while still unwrapping to the cause. Otherwise the transaction is committed.
// Panics roll back and are re-raised.
func (s *Store) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	log := tx.logger

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, store.ErrTransactionClosed) {
				log.Error("failed to roll back transaction after panic",
					slog.String("error", rbErr.Error()),
					slog.Any("panic", p))
			} else {
				log.Error("rolled back transaction after panic", slog.Any("panic", p))
			}
			// ALLOW-PANIC: Propagating caught panic from transaction
			panic(p)
		}
	}()

	if err := fn(logger.WithLogger(ctx, log), tx); err != nil {
		rbErr := tx.Rollback(ctx)
		if rbErr != nil && !errors.Is(rbErr, store.ErrTransactionClosed) {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return &store.AbortError{TxID: tx.ID(), Err: errors.Join(err, rbErr)}
		}
		log.Debug("rolled back transaction due to error", slog.String("error", err.Error()))
		return &store.AbortError{TxID: tx.ID(), Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &store.AbortError{TxID: tx.ID(), Err: err}
	}
	return nil
}
