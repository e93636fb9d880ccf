package domain

import (
	"testing"
	"time"

	"github.com/phrazzld/querykit/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		age      int64
		wantErr  string
	}{
		{name: "valid", username: "eve", email: "eve@example.com", age: 15},
		{name: "missing_username", email: "eve@example.com", wantErr: "username is required"},
		{name: "bad_email", username: "eve", email: "not-an-email", wantErr: "email must be a valid email address"},
		{name: "negative_age", username: "eve", email: "eve@example.com", age: -1, wantErr: "age must be at least 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUser(tt.username, tt.email, tt.age)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				assert.ErrorIs(t, err, schema.ErrConfiguration)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, u)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.username, u.Username)
		})
	}
}

func TestUser_ChangesAndRecord(t *testing.T) {
	u, err := NewUser("eve", "eve@example.com", 15)
	require.NoError(t, err)

	cs, err := u.Changes()
	require.NoError(t, err)
	assert.Equal(t, schema.Users, cs.Entity())
	assert.Equal(t, []string{"username", "email", "age"}, cs.Fields())
	assert.Empty(t, cs.Missing())

	got, err := UserFromRecord(schema.Record{"id": int64(3), "username": "eve", "email": "eve@example.com", "age": int64(15)})
	require.NoError(t, err)
	assert.Equal(t, User{ID: 3, Username: "eve", Email: "eve@example.com", Age: 15}, got)

	_, err = UserFromRecord(schema.Record{"id": "3"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestTask(t *testing.T) {
	catID := int64(4)
	task, err := NewTask("water plants", &catID)
	require.NoError(t, err)

	cs, err := task.Changes()
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "done", "category_id"}, cs.Fields())

	uncategorized, err := NewTask("someday", nil)
	require.NoError(t, err)
	cs, err = uncategorized.Changes()
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "done"}, cs.Fields())

	zero := int64(0)
	_, err = NewTask("bad", &zero)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewTask("", nil)
	assert.ErrorIs(t, err, ErrValidation)

	now := time.Now().UTC()
	got, err := TaskFromRecord(schema.Record{
		"id": int64(1), "title": "someday", "done": false, "created_at": now, "category_id": nil,
	})
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
	assert.Equal(t, now, got.CreatedAt)
}

func TestCategory(t *testing.T) {
	c, err := NewCategory("home")
	require.NoError(t, err)
	cs, err := c.Changes()
	require.NoError(t, err)
	v, ok := cs.Value("name")
	assert.True(t, ok)
	assert.Equal(t, "home", v)

	_, err = NewCategory("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDecode(t *testing.T) {
	recs := []schema.Record{
		{"id": int64(1), "name": "home"},
		{"id": int64(2), "name": "work"},
	}
	cats, err := Decode(recs, CategoryFromRecord)
	require.NoError(t, err)
	assert.Equal(t, []Category{{ID: 1, Name: "home"}, {ID: 2, Name: "work"}}, cats)

	_, err = Decode([]schema.Record{{"id": int64(1)}}, CategoryFromRecord)
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Contains(t, err.Error(), "record 0")
}
