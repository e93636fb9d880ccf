package query

import (
	"fmt"
	"strings"

	"github.com/phrazzld/querykit/internal/schema"
)

// Side says which entity of a join a projected column comes from.
type Side int

// Join sides.
const (
	PrimarySide Side = iota
	JoinedSide
)

// Column projects one field of a join into the flat output record.
type Column struct {
	side  Side
	field string
	as    string
}

// Primary projects a field of the primary entity.
func Primary(field string) Column { return Column{side: PrimarySide, field: field} }

// Joined projects a field of the joined entity.
func Joined(field string) Column { return Column{side: JoinedSide, field: field} }

// As renames the projected column.
func (c Column) As(name string) Column {
	c.as = name
	return c
}

// Side returns the entity side the column reads from.
func (c Column) Side() Side { return c.side }

// Field returns the source field name.
func (c Column) Field() string { return c.field }

// Name returns the output name of the column.
func (c Column) Name() string {
	if c.as != "" {
		return c.as
	}
	return c.field
}

// JoinKey pairs a primary field with the joined field it must equal.
type JoinKey struct {
	Primary string
	Joined  string
}

// JoinOn builds a JoinKey.
func JoinOn(primaryField, joinedField string) JoinKey {
	return JoinKey{Primary: primaryField, Joined: joinedField}
}

// Join reads every record of the primary entity once, enriched with the
// projected fields of the matching joined record (a left outer join).
type Join struct {
	primary *schema.Entity
	joined  *schema.Entity
	key     JoinKey
	columns []Column
	window
}

// NewJoin validates and builds a left outer join. The joined key must be
// the joined entity's identity or a unique field, so each primary record
// appears exactly once. An empty projection selects every primary field
// plus every joined field named "<entity>.<field>", e.g. "category.name".
// Options apply to the primary entity.
func NewJoin(primary, joined *schema.Entity, key JoinKey, columns []Column, opts ...Option) (Join, error) {
	if primary == nil || joined == nil {
		return Join{}, fmt.Errorf("%w: join needs two entities", schema.ErrConfiguration)
	}

	pf, err := primary.Field(key.Primary)
	if err != nil {
		return Join{}, err
	}
	jf, err := joined.Field(key.Joined)
	if err != nil {
		return Join{}, err
	}
	if pf.Type != jf.Type {
		return Join{}, fmt.Errorf("%w: join key %s.%s (%s) does not match %s.%s (%s)",
			schema.ErrTypeMismatch, primary.Name(), pf.Name, pf.Type, joined.Name(), jf.Name, jf.Type)
	}
	if !jf.Unique && !jf.Identity {
		return Join{}, fmt.Errorf("%w: join key %s.%s is not unique",
			schema.ErrConfiguration, joined.Name(), jf.Name)
	}

	if len(columns) == 0 {
		columns = defaultProjection(primary, joined)
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		src := primary
		if c.side == JoinedSide {
			src = joined
		}
		if _, err := src.Field(c.field); err != nil {
			return Join{}, err
		}
		if seen[c.Name()] {
			return Join{}, fmt.Errorf("%w: projection names %q twice", schema.ErrConfiguration, c.Name())
		}
		seen[c.Name()] = true
	}

	j := Join{
		primary: primary,
		joined:  joined,
		key:     key,
		columns: append([]Column(nil), columns...),
	}
	for _, opt := range opts {
		if err := opt(primary, &j.window); err != nil {
			return Join{}, err
		}
	}
	return j, nil
}

func defaultProjection(primary, joined *schema.Entity) []Column {
	cols := make([]Column, 0, len(primary.Fields())+len(joined.Fields()))
	for _, name := range primary.FieldNames() {
		cols = append(cols, Primary(name))
	}
	prefix := strings.ToLower(joined.Name()) + "."
	for _, name := range joined.FieldNames() {
		cols = append(cols, Joined(name).As(prefix+name))
	}
	return cols
}

// Primary returns the primary entity.
func (j Join) Primary() *schema.Entity { return j.primary }

// Joined returns the joined entity.
func (j Join) Joined() *schema.Entity { return j.joined }

// Key returns the join key.
func (j Join) Key() JoinKey { return j.key }

// Columns returns the projection in output order.
func (j Join) Columns() []Column {
	return append([]Column(nil), j.columns...)
}

// ColumnNames returns the output names of the projection.
func (j Join) ColumnNames() []string {
	names := make([]string, len(j.columns))
	for i, c := range j.columns {
		names[i] = c.Name()
	}
	return names
}
