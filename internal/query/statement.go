package query

import (
	"errors"
	"fmt"

	"github.com/phrazzld/querykit/internal/schema"
)

// ErrBroadMutation is returned when an update or delete is built without a
// predicate. Mutations of every record must use NewUpdateAll/NewDeleteAll.
var ErrBroadMutation = fmt.Errorf("%w: mutation without predicate (use the All form to touch every record)",
	schema.ErrConfiguration)

// ErrUnbuiltStatement is returned by executors handed a zero statement.
var ErrUnbuiltStatement = fmt.Errorf("%w: statement was not built with its constructor",
	schema.ErrConfiguration)

// Direction is a sort direction.
type Direction int

// Sort directions.
const (
	Asc Direction = iota
	Desc
)

// String returns "asc" or "desc".
func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Order sorts by one field.
type Order struct {
	Field     string
	Direction Direction
}

// window is the part of a read statement shared by Select and Join: the
// predicate, ordering and pagination applied to the primary entity.
type window struct {
	where    Predicate
	order    []Order
	limit    int
	hasLimit bool
	offset   int
}

// Option configures the predicate, ordering or pagination of a Select or a
// Join. Options are validated against the statement's (primary) entity.
type Option func(e *schema.Entity, w *window) error

// Where restricts the statement to records matching p.
func Where(p Predicate) Option {
	return func(e *schema.Entity, w *window) error {
		if !p.IsZero() && p.Entity() != e {
			return fmt.Errorf("%w: %s predicate used on %s",
				schema.ErrConfiguration, p.Entity().Name(), e.Name())
		}
		w.where = p
		return nil
	}
}

// OrderBy appends a sort key. It may be repeated.
func OrderBy(field string, dir Direction) Option {
	return func(e *schema.Entity, w *window) error {
		if _, err := e.Field(field); err != nil {
			return err
		}
		w.order = append(w.order, Order{Field: field, Direction: dir})
		return nil
	}
}

// Limit caps the number of records returned. Limit(0) returns nothing.
func Limit(n int) Option {
	return func(_ *schema.Entity, w *window) error {
		if n < 0 {
			return fmt.Errorf("%w: limit must not be negative, got %d", schema.ErrConfiguration, n)
		}
		w.limit, w.hasLimit = n, true
		return nil
	}
}

// Offset skips the first n records of the ordered result.
func Offset(n int) Option {
	return func(_ *schema.Entity, w *window) error {
		if n < 0 {
			return fmt.Errorf("%w: offset must not be negative, got %d", schema.ErrConfiguration, n)
		}
		w.offset = n
		return nil
	}
}

func (w window) Where() Predicate { return w.where }

func (w window) Order() []Order {
	out := make([]Order, len(w.order))
	copy(out, w.order)
	return out
}

func (w window) Limit() (int, bool) { return w.limit, w.hasLimit }

func (w window) Offset() int { return w.offset }

// Select reads records of one entity.
type Select struct {
	entity *schema.Entity
	window
}

// NewSelect validates and builds a Select. Without options it reads every
// record in unspecified order.
func NewSelect(e *schema.Entity, opts ...Option) (Select, error) {
	if e == nil {
		return Select{}, fmt.Errorf("%w: select without entity", schema.ErrConfiguration)
	}
	s := Select{entity: e}
	for _, opt := range opts {
		if err := opt(e, &s.window); err != nil {
			return Select{}, err
		}
	}
	return s, nil
}

// Entity returns the entity read by the statement.
func (s Select) Entity() *schema.Entity { return s.entity }

// Insert creates records of one entity.
type Insert struct {
	entity *schema.Entity
	rows   []schema.ChangeSet
}

// NewInsert validates and builds a batch insert. Every row must belong to
// the entity and assign every insert-required field.
func NewInsert(e *schema.Entity, rows ...schema.ChangeSet) (Insert, error) {
	if e == nil {
		return Insert{}, fmt.Errorf("%w: insert without entity", schema.ErrConfiguration)
	}
	if len(rows) == 0 {
		return Insert{}, fmt.Errorf("%w: insert into %s without rows", schema.ErrInvalidChange, e.Name())
	}
	var errs []error
	for i, row := range rows {
		if row.Entity() != e {
			errs = append(errs, fmt.Errorf("%w: row %d is not a %s change set",
				schema.ErrInvalidChange, i, e.Name()))
			continue
		}
		if missing := row.Missing(); len(missing) > 0 {
			errs = append(errs, fmt.Errorf("%w: row %d misses required %s fields %v",
				schema.ErrInvalidChange, i, e.Name(), missing))
		}
	}
	if len(errs) > 0 {
		return Insert{}, errors.Join(errs...)
	}
	return Insert{entity: e, rows: append([]schema.ChangeSet(nil), rows...)}, nil
}

// Entity returns the entity written by the statement.
func (s Insert) Entity() *schema.Entity { return s.entity }

// Rows returns the change sets to insert, in input order.
func (s Insert) Rows() []schema.ChangeSet {
	return append([]schema.ChangeSet(nil), s.rows...)
}

// Update changes fields of the records matching a predicate, or of every
// record when built with NewUpdateAll.
type Update struct {
	entity  *schema.Entity
	changes schema.ChangeSet
	where   Predicate
}

// NewUpdate builds an update of the records matching where. The predicate is
// mandatory.
func NewUpdate(changes schema.ChangeSet, where Predicate) (Update, error) {
	if where.IsZero() {
		return Update{}, ErrBroadMutation
	}
	if err := checkChanges(changes); err != nil {
		return Update{}, err
	}
	if where.Entity() != changes.Entity() {
		return Update{}, fmt.Errorf("%w: %s predicate used to update %s",
			schema.ErrConfiguration, where.Entity().Name(), changes.Entity().Name())
	}
	return Update{entity: changes.Entity(), changes: changes, where: where}, nil
}

// NewUpdateAll builds an update of every record of the change set's entity.
func NewUpdateAll(changes schema.ChangeSet) (Update, error) {
	if err := checkChanges(changes); err != nil {
		return Update{}, err
	}
	return Update{entity: changes.Entity(), changes: changes}, nil
}

func checkChanges(changes schema.ChangeSet) error {
	if changes.Entity() == nil {
		return fmt.Errorf("%w: update without change set", schema.ErrInvalidChange)
	}
	if changes.Len() == 0 {
		return fmt.Errorf("%w: update of %s changes nothing", schema.ErrInvalidChange, changes.Entity().Name())
	}
	return nil
}

// Entity returns the entity written by the statement.
func (s Update) Entity() *schema.Entity { return s.entity }

// Changes returns the assignments.
func (s Update) Changes() schema.ChangeSet { return s.changes }

// Where returns the predicate; it is zero for NewUpdateAll statements.
func (s Update) Where() Predicate { return s.where }

// Delete removes the records matching a predicate, or every record when
// built with NewDeleteAll.
type Delete struct {
	entity *schema.Entity
	where  Predicate
}

// NewDelete builds a delete of the records matching where. The predicate is
// mandatory.
func NewDelete(where Predicate) (Delete, error) {
	if where.IsZero() {
		return Delete{}, ErrBroadMutation
	}
	return Delete{entity: where.Entity(), where: where}, nil
}

// NewDeleteAll builds a delete of every record of the entity.
func NewDeleteAll(e *schema.Entity) (Delete, error) {
	if e == nil {
		return Delete{}, fmt.Errorf("%w: delete without entity", schema.ErrConfiguration)
	}
	return Delete{entity: e}, nil
}

// Entity returns the entity written by the statement.
func (s Delete) Entity() *schema.Entity { return s.entity }

// Where returns the predicate; it is zero for NewDeleteAll statements.
func (s Delete) Where() Predicate { return s.where }
