package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FieldType is the semantic type of a field.
type FieldType int

// Supported field types.
const (
	Integer FieldType = iota + 1
	String
	Boolean
	Timestamp
)

// String returns the lower-case name of the type.
func (t FieldType) String() string {
	switch t {
	case Integer:
		return "integer"
	case String:
		return "string"
	case Boolean:
		return "boolean"
	case Timestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// Ordered reports whether values of the type support range comparisons.
func (t FieldType) Ordered() bool {
	return t == Integer || t == Timestamp
}

// TimestampLayout is the text form timestamps take when a store keeps them
// as text. It sorts lexically in chronological order.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// timestampLayouts are accepted when parsing timestamps read back from a store
// or supplied as text by a caller.
var timestampLayouts = []string{
	time.RFC3339Nano,
	TimestampLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DefaultNow marks a field whose store default is the time of creation.
var DefaultNow = nowDefault{}

type nowDefault struct{}

func (nowDefault) String() string { return "now()" }

// OnDelete is the policy a reference applies when its target is removed.
type OnDelete string

// Reference policies.
const (
	SetNull  OnDelete = "SET NULL"
	Restrict OnDelete = "RESTRICT"
	Cascade  OnDelete = "CASCADE"
)

// Reference describes a field pointing at another entity.
type Reference struct {
	Entity   string
	Field    string
	OnDelete OnDelete
}

// Field describes one column of an entity. The field name is also the column
// name in the store.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
	Unique   bool
	Identity bool
	// Default is the value the store applies when an insert omits the field:
	// a literal of the field's type or DefaultNow. Nil means no default.
	Default    any
	References *Reference
}

// HasDefault reports whether the store fills the field when it is omitted.
func (f Field) HasDefault() bool {
	return f.Default != nil
}

// RequiredOnInsert reports whether every insert must provide the field.
func (f Field) RequiredOnInsert() bool {
	return !f.Identity && !f.Nullable && !f.HasDefault()
}

// Coerce normalizes a caller-supplied value into the field's semantic type.
// Nil is only accepted for nullable fields.
func (f Field) Coerce(v any) (any, error) {
	if v == nil {
		if !f.Nullable {
			return nil, fmt.Errorf("%w: field %q is not nullable", ErrTypeMismatch, f.Name)
		}
		return nil, nil
	}

	var (
		out any
		ok  bool
	)
	switch f.Type {
	case Integer:
		out, ok = toInt64(v)
	case String:
		out, ok = v.(string)
	case Boolean:
		out, ok = v.(bool)
	case Timestamp:
		var t time.Time
		t, ok = toTime(v)
		out = t
	}
	if !ok {
		return nil, fmt.Errorf("%w: field %q expects %s, got %T",
			ErrTypeMismatch, f.Name, f.Type, v)
	}
	return out, nil
}

// FromStore normalizes a value read back from a store driver. It is more
// lenient than Coerce because drivers differ in how they surface booleans,
// timestamps and text.
func (f Field) FromStore(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, isBytes := v.([]byte); isBytes {
		v = string(b)
	}

	switch f.Type {
	case Integer:
		if s, isString := v.(string); isString {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			return n, nil
		}
		if n, ok := toInt64(v); ok {
			return n, nil
		}
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Boolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			return b, nil
		default:
			if n, ok := toInt64(v); ok {
				return n != 0, nil
			}
		}
	case Timestamp:
		if t, ok := toTime(v); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("field %q: cannot read %T as %s", f.Name, v, f.Type)
}

// ParseValue parses the textual form of a value for the field. On nullable
// fields the literal "null" means absent.
func (f Field) ParseValue(text string) (any, error) {
	if text == "null" && f.Nullable {
		return nil, nil
	}
	switch f.Type {
	case Integer:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q expects an integer, got %q",
				ErrTypeMismatch, f.Name, text)
		}
		return n, nil
	case Boolean:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q expects a boolean, got %q",
				ErrTypeMismatch, f.Name, text)
		}
		return b, nil
	default:
		return f.Coerce(text)
	}
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt64 || x < math.MinInt64 {
			return 0, false
		}
		return int64(x), true
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Truncate(time.Microsecond), true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Truncate(time.Microsecond), true
			}
		}
	}
	return time.Time{}, false
}
