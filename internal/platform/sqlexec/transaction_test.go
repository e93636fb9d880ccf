package sqlexec_test

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/querykit/internal/platform/sqlexec"
	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
	"github.com/phrazzld/querykit/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertStmt(t *testing.T, e *schema.Entity, rows ...map[string]any) query.Insert {
	t.Helper()
	sets := make([]schema.ChangeSet, len(rows))
	for i, row := range rows {
		sets[i] = changes(t, e, row)
	}
	stmt, err := query.NewInsert(e, sets...)
	require.NoError(t, err)
	return stmt
}

func TestRunInTransaction_Commit(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		ctx := context.Background()

		err := s.RunInTransaction(ctx, func(ctx context.Context, tx store.Executor) error {
			cats, err := tx.Insert(ctx, insertStmt(t, schema.Categories, map[string]any{"name": "garden"}))
			if err != nil {
				return err
			}
			catID, _ := cats[0].Int("id")

			_, err = tx.Insert(ctx, insertStmt(t, schema.Tasks,
				map[string]any{"title": "mow", "category_id": catID}))
			if err != nil {
				return err
			}

			// Effects of earlier operations are visible inside the transaction.
			stmt, err := query.NewSelect(schema.Tasks, query.Where(query.Must(tasks.Eq("category_id", catID))))
			if err != nil {
				return err
			}
			found, err := tx.Find(ctx, stmt)
			if err != nil {
				return err
			}
			assert.Len(t, found, 1)
			return nil
		})
		require.NoError(t, err)

		got := find(t, s, schema.Tasks)
		require.Len(t, got, 1)
		assert.Equal(t, "mow", got[0]["title"])
		assert.False(t, got[0].IsNull("category_id"))
	})
}

func TestRunInTransaction_BodyErrorRollsBack(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		errBoom := errors.New("boom")

		err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx store.Executor) error {
			if _, err := tx.Insert(ctx, insertStmt(t, schema.Users,
				map[string]any{"username": "ghost", "email": "ghost@x.com"})); err != nil {
				return err
			}
			return errBoom
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrTransactionAborted)
		assert.ErrorIs(t, err, errBoom)

		assert.Empty(t, find(t, s, schema.Users, query.Where(query.Must(users.Eq("username", "ghost")))))
	})
}

func TestRunInTransaction_IntegrityErrorRollsBack(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		seedUsers(t, s)

		err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx store.Executor) error {
			if _, err := tx.Insert(ctx, insertStmt(t, schema.Users,
				map[string]any{"username": "new", "email": "new@x.com"})); err != nil {
				return err
			}
			_, err := tx.Insert(ctx, insertStmt(t, schema.Users,
				map[string]any{"username": "ann", "email": "other@x.com"}))
			return err
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrTransactionAborted)
		assert.ErrorIs(t, err, store.ErrDuplicate)

		var ie *store.IntegrityError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, "username", ie.Field)

		assert.Len(t, find(t, s, schema.Users), 4, "first insert rolled back")
	})
}

func TestRunInTransaction_SwallowedErrorStillAborts(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		seedUsers(t, s)

		err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx store.Executor) error {
			_, _ = tx.Insert(ctx, insertStmt(t, schema.Users,
				map[string]any{"username": "new", "email": "new@x.com"}))
			_, _ = tx.Insert(ctx, insertStmt(t, schema.Users,
				map[string]any{"username": "ann", "email": "dup@x.com"}))
			return nil
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrTransactionAborted)
		assert.ErrorIs(t, err, store.ErrTransactionClosed)
		assert.Len(t, find(t, s, schema.Users), 4)
	})
}

func TestRunInTransaction_PanicRollsBackAndRepanics(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		assert.PanicsWithValue(t, "kaboom", func() {
			_ = s.RunInTransaction(context.Background(), func(ctx context.Context, tx store.Executor) error {
				if _, err := tx.Insert(ctx, insertStmt(t, schema.Users,
					map[string]any{"username": "ghost", "email": "ghost@x.com"})); err != nil {
					return err
				}
				panic("kaboom")
			})
		})

		assert.Empty(t, find(t, s, schema.Users))
	})
}

func TestRunInTransaction_CancelledBodyRollsBack(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		err := s.RunInTransaction(ctx, func(ctx context.Context, tx store.Executor) error {
			if _, err := tx.Insert(ctx, insertStmt(t, schema.Users,
				map[string]any{"username": "ghost", "email": "ghost@x.com"})); err != nil {
				return err
			}
			cancel()
			_, err := tx.Insert(ctx, insertStmt(t, schema.Users,
				map[string]any{"username": "ghost2", "email": "ghost2@x.com"}))
			return err
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrTransactionAborted)
		assert.ErrorIs(t, err, context.Canceled)

		assert.Empty(t, find(t, s, schema.Users))
	})
}

func TestTransact(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		ctx := context.Background()

		id, err := store.Transact(ctx, s, func(ctx context.Context, tx store.Executor) (int64, error) {
			recs, err := tx.Insert(ctx, insertStmt(t, schema.Categories, map[string]any{"name": "kept"}))
			if err != nil {
				return 0, err
			}
			id, _ := recs[0].Int("id")
			return id, nil
		})
		require.NoError(t, err)
		assert.Positive(t, id)

		recs, err := store.Transact(ctx, s, func(ctx context.Context, tx store.Executor) ([]schema.Record, error) {
			return tx.Insert(ctx, insertStmt(t, schema.Categories, map[string]any{"name": "kept"}))
		})
		require.Error(t, err)
		assert.Nil(t, recs, "no partial result after abort")
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})
}

func TestTx_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := testdb.NewStore(t)
	selectAll, err := query.NewSelect(schema.Users)
	require.NoError(t, err)

	t.Run("commit", func(t *testing.T) {
		tx, err := s.Begin(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, tx.ID())
		assert.Equal(t, store.TxStarted, tx.State())

		_, err = tx.Insert(ctx, insertStmt(t, schema.Users, map[string]any{"username": "kim", "email": "kim@x.com"}))
		require.NoError(t, err)

		require.NoError(t, tx.Commit(ctx))
		assert.Equal(t, store.TxCommitted, tx.State())

		_, err = tx.Find(ctx, selectAll)
		assert.ErrorIs(t, err, store.ErrTransactionClosed)
		assert.ErrorIs(t, tx.Commit(ctx), store.ErrTransactionClosed)
		assert.ErrorIs(t, tx.Rollback(ctx), store.ErrTransactionClosed)

		assert.Len(t, find(t, s, schema.Users), 1)
	})

	t.Run("rollback", func(t *testing.T) {
		tx, err := s.Begin(ctx)
		require.NoError(t, err)

		_, err = tx.Insert(ctx, insertStmt(t, schema.Users, map[string]any{"username": "lee", "email": "lee@x.com"}))
		require.NoError(t, err)
		assert.Len(t, find(t, s, schema.Users), 1, "uncommitted insert is invisible outside")

		require.NoError(t, tx.Rollback(ctx))
		assert.Equal(t, store.TxAborted, tx.State())

		_, err = tx.Insert(ctx, insertStmt(t, schema.Users, map[string]any{"username": "lee", "email": "lee@x.com"}))
		assert.ErrorIs(t, err, store.ErrTransactionClosed)
		assert.ErrorIs(t, tx.Commit(ctx), store.ErrTransactionClosed)
		assert.Len(t, find(t, s, schema.Users), 1)
	})

	t.Run("store_error_aborts", func(t *testing.T) {
		tx, err := s.Begin(ctx)
		require.NoError(t, err)

		_, err = tx.Insert(ctx, insertStmt(t, schema.Users, map[string]any{"username": "kim", "email": "kim2@x.com"}))
		assert.ErrorIs(t, err, store.ErrDuplicate)
		assert.Equal(t, store.TxAborted, tx.State())

		_, err = tx.Find(ctx, selectAll)
		assert.ErrorIs(t, err, store.ErrTransactionClosed)
	})

	t.Run("configuration_error_keeps_transaction_open", func(t *testing.T) {
		testdb.WithTx(t, s, func(t *testing.T, tx *sqlexec.Tx) {
			_, err := tx.Find(ctx, query.Select{})
			assert.ErrorIs(t, err, store.ErrConfiguration)
			assert.Equal(t, store.TxStarted, tx.State())

			got, err := tx.Find(ctx, selectAll)
			require.NoError(t, err)
			assert.Len(t, got, 1)
		})
	})
}
