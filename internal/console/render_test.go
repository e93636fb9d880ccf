package console

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"table", "json", "yaml"} {
		f, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, Format(name), f)
	}

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)

	_, err = ParseFormat("csv")
	assert.ErrorIs(t, err, schema.ErrConfiguration)
}

func TestRenderer_Table(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, "")

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	err := r.Records([]string{"id", "title", "done", "created_at", "category_id"}, []schema.Record{
		{"id": int64(1), "title": "report", "done": true, "created_at": created, "category_id": nil},
	})
	require.NoError(t, err)

	text := out.String()
	for _, want := range []string{"title", "report", "true", "2024-03-01T12:00:00Z", "null", "(1 record)"} {
		assert.Contains(t, text, want)
	}
}

func TestRenderer_Error(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   []string
	}{
		{"table", FormatTable, []string{"kind", "integrity", "unique"}},
		{"json", FormatJSON, []string{`"kind": "integrity"`}},
		{"yaml", FormatYAML, []string{"kind: integrity"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			r := NewRenderer(&out, tt.format)
			err := &store.IntegrityError{Kind: store.UniqueViolation, Entity: "User", Field: "email"}
			require.NoError(t, r.Error(fmt.Errorf("insert: %w", err)))
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestRenderer_ErrorIsRedacted(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, FormatJSON)
	require.NoError(t, r.Error(fmt.Errorf("dial postgres://app:hunter22@db/querykit failed")))
	assert.NotContains(t, out.String(), "hunter22")
	assert.Contains(t, out.String(), `"kind": "internal"`)
}

func TestRenderer_StructuredFormatsSkipNarration(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, FormatJSON)
	r.Title("Seeding")
	r.Note("inserted %d", 3)
	assert.Empty(t, out.String())
}
