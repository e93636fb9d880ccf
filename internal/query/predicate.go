package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/querykit/internal/schema"
)

// Op is the operator at the root of a predicate.
type Op int

// Predicate operators.
const (
	OpEq Op = iota + 1
	OpContains
	OpGt
	OpLt
	OpGte
	OpLte
	OpAnd
	OpOr
)

var opSymbols = map[Op]string{
	OpEq:       "=",
	OpContains: "~",
	OpGt:       ">",
	OpLt:       "<",
	OpGte:      ">=",
	OpLte:      "<=",
	OpAnd:      "AND",
	OpOr:       "OR",
}

// String returns the operator symbol.
func (o Op) String() string {
	if s, ok := opSymbols[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Predicate is an immutable boolean expression over the fields of one
// entity. The zero Predicate means "no predicate" and matches every record.
type Predicate struct {
	entity   *schema.Entity
	op       Op
	field    string
	value    any
	operands []Predicate
}

// IsZero reports whether p is the empty predicate.
func (p Predicate) IsZero() bool { return p.op == 0 }

// Entity returns the entity the predicate is bound to.
func (p Predicate) Entity() *schema.Entity { return p.entity }

// Op returns the root operator.
func (p Predicate) Op() Op { return p.op }

// Field returns the compared field of a comparison predicate.
func (p Predicate) Field() string { return p.field }

// Value returns the normalized operand of a comparison predicate.
func (p Predicate) Value() any { return p.value }

// Operands returns a copy of the operands of an AND/OR predicate.
func (p Predicate) Operands() []Predicate {
	out := make([]Predicate, len(p.operands))
	copy(out, p.operands)
	return out
}

// Builder constructs comparison predicates for one entity. Every method
// validates the field and value against the schema immediately.
type Builder struct {
	entity *schema.Entity
}

// On returns a Builder for the entity.
func On(e *schema.Entity) Builder {
	return Builder{entity: e}
}

// Eq matches records whose field equals v. A nil v on a nullable field
// matches records where the field is absent.
func (b Builder) Eq(field string, v any) (Predicate, error) {
	return b.compare(OpEq, field, v)
}

// Contains matches records whose string field contains substr. The match is
// case-sensitive.
func (b Builder) Contains(field, substr string) (Predicate, error) {
	return b.compare(OpContains, field, substr)
}

// Gt matches records whose ordered field is greater than v.
func (b Builder) Gt(field string, v any) (Predicate, error) {
	return b.compare(OpGt, field, v)
}

// Lt matches records whose ordered field is less than v.
func (b Builder) Lt(field string, v any) (Predicate, error) {
	return b.compare(OpLt, field, v)
}

// Gte matches records whose ordered field is greater than or equal to v.
func (b Builder) Gte(field string, v any) (Predicate, error) {
	return b.compare(OpGte, field, v)
}

// Lte matches records whose ordered field is less than or equal to v.
func (b Builder) Lte(field string, v any) (Predicate, error) {
	return b.compare(OpLte, field, v)
}

func (b Builder) compare(op Op, name string, v any) (Predicate, error) {
	if b.entity == nil {
		return Predicate{}, fmt.Errorf("%w: predicate builder without entity", schema.ErrConfiguration)
	}
	f, err := b.entity.Field(name)
	if err != nil {
		return Predicate{}, err
	}

	switch op {
	case OpContains:
		if f.Type != schema.String {
			return Predicate{}, fmt.Errorf("%w: contains needs a string field, %s.%s is %s",
				schema.ErrTypeMismatch, b.entity.Name(), name, f.Type)
		}
	case OpGt, OpLt, OpGte, OpLte:
		if !f.Type.Ordered() {
			return Predicate{}, fmt.Errorf("%w: %s needs an ordered field, %s.%s is %s",
				schema.ErrTypeMismatch, op, b.entity.Name(), name, f.Type)
		}
		if v == nil {
			return Predicate{}, fmt.Errorf("%w: %s cannot compare %s.%s with null",
				schema.ErrTypeMismatch, op, b.entity.Name(), name)
		}
	}

	value, err := f.Coerce(v)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{entity: b.entity, op: op, field: name, value: value}, nil
}

// And matches records every operand matches.
func And(ps ...Predicate) (Predicate, error) {
	return combine(OpAnd, ps)
}

// Or matches records at least one operand matches.
func Or(ps ...Predicate) (Predicate, error) {
	return combine(OpOr, ps)
}

// Must returns p or panics if err is non-nil. It is meant for predicates that
// are known to be valid at compile time.
func Must(p Predicate, err error) Predicate {
	if err != nil {
		panic(err)
	}
	return p
}

func combine(op Op, ps []Predicate) (Predicate, error) {
	if len(ps) == 0 {
		return Predicate{}, fmt.Errorf("%w: %s needs at least one operand", schema.ErrConfiguration, op)
	}

	var entity *schema.Entity
	operands := make([]Predicate, 0, len(ps))
	for i, p := range ps {
		if p.IsZero() {
			return Predicate{}, fmt.Errorf("%w: %s operand %d is empty", schema.ErrConfiguration, op, i)
		}
		if entity == nil {
			entity = p.entity
		} else if p.entity != entity {
			return Predicate{}, fmt.Errorf("%w: %s mixes %s and %s predicates",
				schema.ErrConfiguration, op, entity.Name(), p.entity.Name())
		}
		// (a AND b) AND c is a AND b AND c.
		if p.op == op {
			operands = append(operands, p.operands...)
			continue
		}
		operands = append(operands, p)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return Predicate{entity: entity, op: op, operands: operands}, nil
}

// Matches evaluates the predicate against a record in process. It follows
// the semantics of the SQL rendering: absent values never satisfy a
// comparison, and Contains is case-sensitive.
func (p Predicate) Matches(r schema.Record) bool {
	switch p.op {
	case 0:
		return true
	case OpAnd:
		for _, o := range p.operands {
			if !o.Matches(r) {
				return false
			}
		}
		return true
	case OpOr:
		for _, o := range p.operands {
			if o.Matches(r) {
				return true
			}
		}
		return false
	}

	actual := r[p.field]
	if p.op == OpEq && p.value == nil {
		return actual == nil
	}
	if actual == nil {
		return false
	}
	if p.op == OpContains {
		s, ok := actual.(string)
		return ok && strings.Contains(s, p.value.(string))
	}

	cmp, ok := compareValues(actual, p.value)
	if !ok {
		return false
	}
	switch p.op {
	case OpEq:
		return cmp == 0
	case OpGt:
		return cmp > 0
	case OpLt:
		return cmp < 0
	case OpGte:
		return cmp >= 0
	case OpLte:
		return cmp <= 0
	}
	return false
}

// Filter returns the records p matches, preserving order.
func (p Predicate) Filter(records []schema.Record) []schema.Record {
	out := make([]schema.Record, 0, len(records))
	for _, r := range records {
		if p.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// String renders the predicate for logs and console output.
func (p Predicate) String() string {
	switch p.op {
	case 0:
		return "<all>"
	case OpAnd, OpOr:
		parts := make([]string, len(p.operands))
		for i, o := range p.operands {
			parts[i] = o.String()
		}
		return "(" + strings.Join(parts, " "+p.op.String()+" ") + ")"
	}
	switch v := p.value.(type) {
	case nil:
		return p.field + " " + p.op.String() + " null"
	case string:
		return fmt.Sprintf("%s %s %q", p.field, p.op, v)
	case time.Time:
		return fmt.Sprintf("%s %s %s", p.field, p.op, v.Format(time.RFC3339Nano))
	default:
		return fmt.Sprintf("%s %s %v", p.field, p.op, v)
	}
}

// compareValues orders two normalized values of the same type.
func compareValues(a, b any) (int, bool) {
	switch x := a.(type) {
	case int64:
		y, ok := b.(int64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if x == y {
			return 0, true
		}
		if !x {
			return -1, true
		}
		return 1, true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}
