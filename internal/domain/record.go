package domain

import (
	"fmt"
	"time"

	"github.com/phrazzld/querykit/internal/schema"
)

// Decode converts store records with the given decoder, stopping at the
// first record that does not fit.
func Decode[T any](records []schema.Record, decode func(schema.Record) (T, error)) ([]T, error) {
	out := make([]T, 0, len(records))
	for i, r := range records {
		v, err := decode(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func requireInt(r schema.Record, name string) (int64, error) {
	v, ok := r.Int(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T, want integer", ErrInvalidRecord, name, r[name])
	}
	return v, nil
}

func requireString(r schema.Record, name string) (string, error) {
	v, ok := r.String(name)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, want string", ErrInvalidRecord, name, r[name])
	}
	return v, nil
}

func requireBool(r schema.Record, name string) (bool, error) {
	v, ok := r.Bool(name)
	if !ok {
		return false, fmt.Errorf("%w: %s is %T, want boolean", ErrInvalidRecord, name, r[name])
	}
	return v, nil
}

func requireTime(r schema.Record, name string) (time.Time, error) {
	v, ok := r.Time(name)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s is %T, want timestamp", ErrInvalidRecord, name, r[name])
	}
	return v, nil
}

func optionalInt(r schema.Record, name string) (*int64, error) {
	if r.IsNull(name) {
		return nil, nil
	}
	v, err := requireInt(r, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
