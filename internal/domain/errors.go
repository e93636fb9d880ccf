package domain

import (
	"fmt"

	"github.com/phrazzld/querykit/internal/schema"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// It is a configuration error: the store is never contacted.
	ErrValidation = fmt.Errorf("%w: validation failed", schema.ErrConfiguration)

	// ErrInvalidRecord is returned when a store record cannot be decoded
	// into a domain type.
	ErrInvalidRecord = fmt.Errorf("%w: invalid record", schema.ErrConfiguration)
)
