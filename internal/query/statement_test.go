package query_test

import (
	"testing"

	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelect(t *testing.T) {
	t.Parallel()

	eve := query.Must(query.On(schema.Users).Eq("username", "eve"))

	s, err := query.NewSelect(schema.Users,
		query.Where(eve),
		query.OrderBy("age", query.Desc),
		query.OrderBy("username", query.Asc),
		query.Limit(10),
		query.Offset(20),
	)
	require.NoError(t, err)
	assert.Same(t, schema.Users, s.Entity())
	assert.Equal(t, eve.String(), s.Where().String())
	assert.Equal(t, []query.Order{
		{Field: "age", Direction: query.Desc},
		{Field: "username", Direction: query.Asc},
	}, s.Order())
	limit, ok := s.Limit()
	assert.True(t, ok)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 20, s.Offset())

	all, err := query.NewSelect(schema.Users)
	require.NoError(t, err)
	_, ok = all.Limit()
	assert.False(t, ok, "no limit means unlimited")
	assert.True(t, all.Where().IsZero())
}

func TestNewSelectErrors(t *testing.T) {
	t.Parallel()

	taskP := query.Must(query.On(schema.Tasks).Eq("done", true))

	tests := []struct {
		name string
		opts []query.Option
		want error
	}{
		{"negative_offset", []query.Option{query.Offset(-1)}, schema.ErrConfiguration},
		{"negative_limit", []query.Option{query.Limit(-5)}, schema.ErrConfiguration},
		{"unknown_order_field", []query.Option{query.OrderBy("height", query.Asc)}, schema.ErrUnknownField},
		{"foreign_predicate", []query.Option{query.Where(taskP)}, schema.ErrConfiguration},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := query.NewSelect(schema.Users, tc.opts...)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := query.NewSelect(nil)
	assert.ErrorIs(t, err, schema.ErrConfiguration)
}

func TestNewJoin(t *testing.T) {
	t.Parallel()

	j, err := query.NewJoin(schema.Tasks, schema.Categories,
		query.JoinOn("category_id", "id"),
		[]query.Column{query.Primary("title"), query.Joined("name").As("category")},
		query.OrderBy("id", query.Asc),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "category"}, j.ColumnNames())
	assert.Equal(t, query.JoinKey{Primary: "category_id", Joined: "id"}, j.Key())

	def, err := query.NewJoin(schema.Tasks, schema.Categories, query.JoinOn("category_id", "id"), nil)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"id", "title", "done", "created_at", "category_id", "category.id", "category.name"},
		def.ColumnNames())
}

func TestNewJoinErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     query.JoinKey
		columns []query.Column
		want    error
	}{
		{"unknown_primary_key", query.JoinOn("cat", "id"), nil, schema.ErrUnknownField},
		{"unknown_joined_key", query.JoinOn("category_id", "uuid"), nil, schema.ErrUnknownField},
		{"type_mismatch", query.JoinOn("title", "id"), nil, schema.ErrTypeMismatch},
		{"unknown_projection", query.JoinOn("category_id", "id"),
			[]query.Column{query.Joined("colour")}, schema.ErrUnknownField},
		{"duplicate_output", query.JoinOn("category_id", "id"),
			[]query.Column{query.Primary("id"), query.Joined("id")}, schema.ErrConfiguration},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := query.NewJoin(schema.Tasks, schema.Categories, tc.key, tc.columns)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// Joining on a non-unique field could repeat primary records.
	_, err := query.NewJoin(schema.Categories, schema.Tasks, query.JoinOn("id", "category_id"), nil)
	assert.ErrorIs(t, err, schema.ErrConfiguration)
}

func TestNewInsert(t *testing.T) {
	t.Parallel()

	a, err := schema.NewChangeSet(schema.Users, map[string]any{"username": "a", "email": "a@x.com"})
	require.NoError(t, err)
	b, err := schema.NewChangeSet(schema.Users, map[string]any{"username": "b", "email": "b@x.com", "age": 3})
	require.NoError(t, err)

	ins, err := query.NewInsert(schema.Users, a, b)
	require.NoError(t, err)
	assert.Len(t, ins.Rows(), 2)

	_, err = query.NewInsert(schema.Users)
	assert.ErrorIs(t, err, schema.ErrInvalidChange)

	partial, err := schema.NewChangeSet(schema.Users, map[string]any{"username": "c"})
	require.NoError(t, err)
	_, err = query.NewInsert(schema.Users, a, partial)
	assert.ErrorIs(t, err, schema.ErrInvalidChange)
	assert.Contains(t, err.Error(), "email")

	_, err = query.NewInsert(schema.Categories, a)
	assert.ErrorIs(t, err, schema.ErrInvalidChange)
}

func TestUpdateAndDeleteRequireExplicitBreadth(t *testing.T) {
	t.Parallel()

	changes, err := schema.NewChangeSet(schema.Users, map[string]any{"age": 25})
	require.NoError(t, err)

	_, err = query.NewUpdate(changes, query.Predicate{})
	assert.ErrorIs(t, err, query.ErrBroadMutation)

	all, err := query.NewUpdateAll(changes)
	require.NoError(t, err)
	assert.True(t, all.Where().IsZero())

	_, err = query.NewDelete(query.Predicate{})
	assert.ErrorIs(t, err, query.ErrBroadMutation)

	del, err := query.NewDeleteAll(schema.Users)
	require.NoError(t, err)
	assert.Same(t, schema.Users, del.Entity())

	eve := query.Must(query.On(schema.Users).Eq("username", "eve"))
	upd, err := query.NewUpdate(changes, eve)
	require.NoError(t, err)
	assert.Equal(t, "age=25", upd.Changes().String())

	empty, err := schema.NewChangeSet(schema.Users, nil)
	require.NoError(t, err)
	_, err = query.NewUpdate(empty, eve)
	assert.ErrorIs(t, err, schema.ErrInvalidChange)

	taskP := query.Must(query.On(schema.Tasks).Eq("done", true))
	_, err = query.NewUpdate(changes, taskP)
	assert.ErrorIs(t, err, schema.ErrConfiguration)
}
