package sqlexec_test

import (
	"context"
	"testing"

	"github.com/phrazzld/querykit/internal/platform/sqlexec"
	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/testdb"
	"github.com/stretchr/testify/require"
)

// backend opens a fresh, migrated and empty store.
type backend struct {
	name string
	open func(t *testing.T) *sqlexec.Store
}

// backends lists the stores every behavioural test runs against. Builds
// with the integration tag add PostgreSQL.
var backends = []backend{
	{name: "sqlite", open: testdb.NewStore},
}

func onEveryStore(t *testing.T, fn func(t *testing.T, s *sqlexec.Store)) {
	t.Helper()
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

func changes(t *testing.T, e *schema.Entity, values map[string]any) schema.ChangeSet {
	t.Helper()
	cs, err := schema.NewChangeSet(e, values)
	require.NoError(t, err)
	return cs
}

func insert(t *testing.T, s *sqlexec.Store, e *schema.Entity, rows ...map[string]any) []schema.Record {
	t.Helper()
	sets := make([]schema.ChangeSet, len(rows))
	for i, row := range rows {
		sets[i] = changes(t, e, row)
	}
	stmt, err := query.NewInsert(e, sets...)
	require.NoError(t, err)

	recs, err := s.Insert(context.Background(), stmt)
	require.NoError(t, err)
	require.Len(t, recs, len(rows))
	return recs
}

func find(t *testing.T, s *sqlexec.Store, e *schema.Entity, opts ...query.Option) []schema.Record {
	t.Helper()
	stmt, err := query.NewSelect(e, opts...)
	require.NoError(t, err)
	recs, err := s.Find(context.Background(), stmt)
	require.NoError(t, err)
	return recs
}

func ids(recs []schema.Record) []int64 {
	out := make([]int64, len(recs))
	for i, r := range recs {
		out[i], _ = r.Int("id")
	}
	return out
}

func usernames(recs []schema.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i], _ = r.String("username")
	}
	return out
}

// seedUsers inserts ann(17), bob(25), eve(15), dave(40) in that order.
func seedUsers(t *testing.T, s *sqlexec.Store) []schema.Record {
	t.Helper()
	return insert(t, s, schema.Users,
		map[string]any{"username": "ann", "email": "ann@x.com", "age": 17},
		map[string]any{"username": "bob", "email": "bob@y.org", "age": 25},
		map[string]any{"username": "eve", "email": "eve@x.com", "age": 15},
		map[string]any{"username": "dave", "email": "dave@x.com", "age": 40},
	)
}

var (
	users      = query.On(schema.Users)
	tasks      = query.On(schema.Tasks)
	categories = query.On(schema.Categories)
)
