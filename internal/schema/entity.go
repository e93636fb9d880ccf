package schema

import (
	"fmt"
	"strings"
)

// Entity is a named record type with a fixed, ordered field set.
// Entities are immutable once constructed.
type Entity struct {
	name     string
	table    string
	fields   []Field
	index    map[string]int
	identity int
}

// NewEntity builds an entity description. Exactly one field must be the
// integer identity, and field names must be unique.
func NewEntity(name, table string, fields ...Field) (*Entity, error) {
	if name == "" || table == "" {
		return nil, fmt.Errorf("%w: entity needs a name and a table", ErrInvalidSchema)
	}
	e := &Entity{
		name:     name,
		table:    table,
		fields:   make([]Field, len(fields)),
		index:    make(map[string]int, len(fields)),
		identity: -1,
	}
	copy(e.fields, fields)

	for i, f := range e.fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: %s field %d has no name", ErrInvalidSchema, name, i)
		}
		if _, dup := e.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s declares %q twice", ErrInvalidSchema, name, f.Name)
		}
		e.index[f.Name] = i

		if f.Identity {
			if e.identity >= 0 {
				return nil, fmt.Errorf("%w: %s has more than one identity field", ErrInvalidSchema, name)
			}
			if f.Type != Integer || f.Nullable {
				return nil, fmt.Errorf("%w: %s identity must be a non-null integer", ErrInvalidSchema, name)
			}
			e.identity = i
		}
	}
	if e.identity < 0 {
		return nil, fmt.Errorf("%w: %s has no identity field", ErrInvalidSchema, name)
	}
	return e, nil
}

// MustEntity is like NewEntity but panics on error. It is meant for package
// level entity definitions.
func MustEntity(name, table string, fields ...Field) *Entity {
	e, err := NewEntity(name, table, fields...)
	if err != nil {
		panic(err)
	}
	return e
}

// Name returns the entity name, e.g. "User".
func (e *Entity) Name() string { return e.name }

// Table returns the store table holding the entity's records.
func (e *Entity) Table() string { return e.table }

// Fields returns the entity's fields in declaration order.
func (e *Entity) Fields() []Field {
	out := make([]Field, len(e.fields))
	copy(out, e.fields)
	return out
}

// FieldNames returns the entity's field names in declaration order.
func (e *Entity) FieldNames() []string {
	names := make([]string, len(e.fields))
	for i, f := range e.fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by name.
func (e *Entity) Field(name string) (Field, error) {
	i, ok := e.index[name]
	if !ok {
		return Field{}, fmt.Errorf("%w %q on %s", ErrUnknownField, name, e.name)
	}
	return e.fields[i], nil
}

// Identity returns the entity's identity field.
func (e *Entity) Identity() Field {
	return e.fields[e.identity]
}

// String implements fmt.Stringer.
func (e *Entity) String() string { return e.name }

// Registry resolves entity names. It is read-only after construction.
type Registry struct {
	entities []*Entity
	byName   map[string]*Entity
}

// NewRegistry builds a registry and checks that every reference points at a
// registered entity's unique field.
func NewRegistry(entities ...*Entity) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Entity, len(entities)*2)}
	for _, e := range entities {
		if e == nil {
			return nil, fmt.Errorf("%w: nil entity", ErrInvalidSchema)
		}
		for _, key := range []string{strings.ToLower(e.name), strings.ToLower(e.table)} {
			if other, dup := r.byName[key]; dup && other != e {
				return nil, fmt.Errorf("%w: name %q used by %s and %s",
					ErrInvalidSchema, key, other.name, e.name)
			}
			r.byName[key] = e
		}
		r.entities = append(r.entities, e)
	}

	for _, e := range r.entities {
		for _, f := range e.fields {
			if f.References == nil {
				continue
			}
			target, err := r.Entity(f.References.Entity)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s references %q",
					ErrInvalidSchema, e.name, f.Name, f.References.Entity)
			}
			tf, err := target.Field(f.References.Field)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidSchema, e.name, f.Name, err)
			}
			if !(tf.Unique || tf.Identity) || tf.Type != f.Type {
				return nil, fmt.Errorf("%w: %s.%s must reference a unique %s field",
					ErrInvalidSchema, e.name, f.Name, f.Type)
			}
		}
	}
	return r, nil
}

// Entity resolves an entity by name or table name, ignoring case.
func (r *Registry) Entity(name string) (*Entity, error) {
	e, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownEntity, name)
	}
	return e, nil
}

// Entities returns the registered entities in registration order.
func (r *Registry) Entities() []*Entity {
	out := make([]*Entity, len(r.entities))
	copy(out, r.entities)
	return out
}
