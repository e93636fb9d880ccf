package schema

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the root of every error caused by referencing something
// the schema does not describe, or by combining things the schema forbids.
// Configuration errors are always detected before the store is contacted.
var ErrConfiguration = errors.New("configuration error")

var (
	// ErrUnknownEntity is returned when an entity name is not registered.
	ErrUnknownEntity = fmt.Errorf("%w: unknown entity", ErrConfiguration)

	// ErrUnknownField is returned when a field name is not part of an entity.
	ErrUnknownField = fmt.Errorf("%w: unknown field", ErrConfiguration)

	// ErrTypeMismatch is returned when a value or an operator does not fit
	// the semantic type of the field it is applied to.
	ErrTypeMismatch = fmt.Errorf("%w: type mismatch", ErrConfiguration)

	// ErrInvalidChange is returned when a change set cannot be applied to an
	// entity, e.g. it touches the identity field or misses a required field.
	ErrInvalidChange = fmt.Errorf("%w: invalid change", ErrConfiguration)

	// ErrInvalidSchema is returned when entity or registry definitions are
	// inconsistent.
	ErrInvalidSchema = fmt.Errorf("%w: invalid schema", ErrConfiguration)
)

// IsConfigurationError reports whether err is any kind of configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
