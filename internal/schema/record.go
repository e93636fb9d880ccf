package schema

import "time"

// Record is one row round-tripped from the store, keyed by field (or
// projected column) name. Values are normalized: int64, string, bool,
// time.Time or nil when absent.
type Record map[string]any

// Int returns the integer value of a field, and false when it is absent or
// not an integer.
func (r Record) Int(name string) (int64, bool) {
	v, ok := r[name].(int64)
	return v, ok
}

// String returns the string value of a field.
func (r Record) String(name string) (string, bool) {
	v, ok := r[name].(string)
	return v, ok
}

// Bool returns the boolean value of a field.
func (r Record) Bool(name string) (bool, bool) {
	v, ok := r[name].(bool)
	return v, ok
}

// Time returns the timestamp value of a field.
func (r Record) Time(name string) (time.Time, bool) {
	v, ok := r[name].(time.Time)
	return v, ok
}

// IsNull reports whether the field is absent or null.
func (r Record) IsNull(name string) bool {
	return r[name] == nil
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
