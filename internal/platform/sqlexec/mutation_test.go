package sqlexec_test

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/querykit/internal/platform/sqlexec"
	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert_ReturnsCreatedRecordsInInputOrder(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		got := insert(t, s, schema.Users,
			map[string]any{"username": "zed", "email": "zed@x.com", "age": 33},
			map[string]any{"username": "amy", "email": "amy@x.com"},
		)

		assert.Equal(t, "zed", got[0]["username"])
		assert.Equal(t, "amy", got[1]["username"])
		assert.Equal(t, int64(33), got[0]["age"])
		assert.Equal(t, int64(0), got[1]["age"], "store default applied")

		first, _ := got[0].Int("id")
		second, _ := got[1].Int("id")
		assert.Positive(t, first)
		assert.Greater(t, second, first)

		assert.Equal(t, got, find(t, s, schema.Users))
	})
}

func TestInsert_DuplicateInBatchCreatesNothing(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		stmt, err := query.NewInsert(schema.Users,
			changes(t, schema.Users, map[string]any{"email": "a@x.com", "username": "a"}),
			changes(t, schema.Users, map[string]any{"email": "a@x.com", "username": "b"}),
		)
		require.NoError(t, err)

		recs, err := s.Insert(context.Background(), stmt)
		require.Error(t, err)
		assert.Nil(t, recs)

		var ie *store.IntegrityError
		require.True(t, errors.As(err, &ie), "expected IntegrityError, got %T: %v", err, err)
		assert.Equal(t, store.UniqueViolation, ie.Kind)
		assert.Equal(t, "email", ie.Field)
		assert.Equal(t, "User", ie.Entity)
		assert.ErrorIs(t, err, store.ErrDuplicate)
		assert.NotErrorIs(t, err, store.ErrTransactionAborted, "batch failures report the row's failure")

		assert.Empty(t, find(t, s, schema.Users))
	})
}

func TestInsert_MissingReference(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		stmt, err := query.NewInsert(schema.Tasks,
			changes(t, schema.Tasks, map[string]any{"title": "orphan", "category_id": 999}))
		require.NoError(t, err)

		_, err = s.Insert(context.Background(), stmt)
		require.Error(t, err)

		var ie *store.IntegrityError
		require.True(t, errors.As(err, &ie), "expected IntegrityError, got %T: %v", err, err)
		assert.Equal(t, store.ForeignKeyViolation, ie.Kind)
		assert.Equal(t, "category_id", ie.Field)
		assert.ErrorIs(t, err, store.ErrMissingReference)
	})
}

func TestUpdate(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		seedUsers(t, s)

		t.Run("by_predicate", func(t *testing.T) {
			eve := query.Must(users.Eq("username", "eve"))
			stmt, err := query.NewUpdate(changes(t, schema.Users, map[string]any{"age": 25}), eve)
			require.NoError(t, err)

			got, err := s.Update(context.Background(), stmt)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "eve", got[0]["username"])
			assert.Equal(t, int64(25), got[0]["age"])

			old := query.Must(query.And(eve, query.Must(users.Eq("age", 15))))
			assert.Empty(t, find(t, s, schema.Users, query.Where(old)))
		})

		t.Run("no_match", func(t *testing.T) {
			stmt, err := query.NewUpdate(changes(t, schema.Users, map[string]any{"age": 1}),
				query.Must(users.Eq("username", "nobody")))
			require.NoError(t, err)

			got, err := s.Update(context.Background(), stmt)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})

		t.Run("unique_conflict", func(t *testing.T) {
			stmt, err := query.NewUpdate(changes(t, schema.Users, map[string]any{"email": "ann@x.com"}),
				query.Must(users.Eq("username", "bob")))
			require.NoError(t, err)

			_, err = s.Update(context.Background(), stmt)
			require.Error(t, err)
			var ie *store.IntegrityError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, store.UniqueViolation, ie.Kind)
			assert.Equal(t, "email", ie.Field)

			bob := find(t, s, schema.Users, query.Where(query.Must(users.Eq("username", "bob"))))
			assert.Equal(t, "bob@y.org", bob[0]["email"])
		})

		t.Run("all", func(t *testing.T) {
			stmt, err := query.NewUpdateAll(changes(t, schema.Users, map[string]any{"age": 50}))
			require.NoError(t, err)

			got, err := s.Update(context.Background(), stmt)
			require.NoError(t, err)
			require.Len(t, got, 4)
			for _, r := range got {
				assert.Equal(t, int64(50), r["age"])
			}
			assert.Equal(t, ids(find(t, s, schema.Users)), ids(got), "ordered by identity")
		})
	})
}

func TestDelete(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		seeded := seedUsers(t, s)
		atX := query.Must(users.Contains("email", "@x.com"))

		stmt, err := query.NewDelete(atX)
		require.NoError(t, err)

		got, err := s.Delete(context.Background(), stmt)
		require.NoError(t, err)
		assert.Equal(t, []schema.Record{seeded[0], seeded[2], seeded[3]}, got, "pre-deletion state")
		assert.Empty(t, find(t, s, schema.Users, query.Where(atX)))

		got, err = s.Delete(context.Background(), stmt)
		require.NoError(t, err)
		assert.Empty(t, got, "deleting again matches nothing")

		all, err := query.NewDeleteAll(schema.Users)
		require.NoError(t, err)
		got, err = s.Delete(context.Background(), all)
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, usernames(got))
		assert.Empty(t, find(t, s, schema.Users))
	})
}

func TestDelete_ReferencedCategoryLeavesTasks(t *testing.T) {
	onEveryStore(t, func(t *testing.T, s *sqlexec.Store) {
		cat := insert(t, s, schema.Categories, map[string]any{"name": "errands"})[0]
		catID, _ := cat.Int("id")
		insert(t, s, schema.Tasks,
			map[string]any{"title": "groceries", "category_id": catID},
			map[string]any{"title": "bank", "category_id": catID},
		)

		stmt, err := query.NewDelete(query.Must(categories.Eq("id", catID)))
		require.NoError(t, err)
		deleted, err := s.Delete(context.Background(), stmt)
		require.NoError(t, err)
		require.Len(t, deleted, 1)

		remaining := find(t, s, schema.Tasks)
		require.Len(t, remaining, 2)
		for _, r := range remaining {
			assert.True(t, r.IsNull("category_id"))
		}
	})
}
