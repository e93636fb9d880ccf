package schema

import (
	"fmt"
	"sort"
	"strings"
)

// ChangeSet is a validated set of field assignments for one entity. It is
// used both as the payload of an insert and as the SET list of an update.
// A ChangeSet never names the identity field or an unknown field, and every
// value already has the field's semantic type.
type ChangeSet struct {
	entity *Entity
	fields []string
	values map[string]any
}

// NewChangeSet validates values against the entity and returns the change
// set. Unknown fields, the identity field, type mismatches and nulls on
// non-nullable fields are rejected.
func NewChangeSet(e *Entity, values map[string]any) (ChangeSet, error) {
	if e == nil {
		return ChangeSet{}, fmt.Errorf("%w: change set without entity", ErrInvalidChange)
	}
	cs := ChangeSet{entity: e, values: make(map[string]any, len(values))}
	for name, raw := range values {
		f, err := e.Field(name)
		if err != nil {
			return ChangeSet{}, err
		}
		if f.Identity {
			return ChangeSet{}, fmt.Errorf("%w: identity field %s.%s is assigned by the store",
				ErrInvalidChange, e.name, name)
		}
		v, err := f.Coerce(raw)
		if err != nil {
			return ChangeSet{}, err
		}
		cs.values[name] = v
	}

	cs.fields = make([]string, 0, len(cs.values))
	for name := range cs.values {
		cs.fields = append(cs.fields, name)
	}
	sort.Slice(cs.fields, func(i, j int) bool {
		return e.index[cs.fields[i]] < e.index[cs.fields[j]]
	})
	return cs, nil
}

// Entity returns the entity the change set applies to.
func (c ChangeSet) Entity() *Entity { return c.entity }

// Fields returns the assigned field names in schema order.
func (c ChangeSet) Fields() []string {
	out := make([]string, len(c.fields))
	copy(out, c.fields)
	return out
}

// Value returns the normalized value assigned to a field.
func (c ChangeSet) Value(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Len returns the number of assigned fields.
func (c ChangeSet) Len() int { return len(c.fields) }

// Missing returns the insert-required fields the change set does not assign.
func (c ChangeSet) Missing() []string {
	if c.entity == nil {
		return nil
	}
	var missing []string
	for _, f := range c.entity.fields {
		if _, ok := c.values[f.Name]; !ok && f.RequiredOnInsert() {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// String renders the assignments as name=value pairs.
func (c ChangeSet) String() string {
	parts := make([]string, len(c.fields))
	for i, name := range c.fields {
		parts[i] = fmt.Sprintf("%s=%v", name, c.values[name])
	}
	return strings.Join(parts, " ")
}
