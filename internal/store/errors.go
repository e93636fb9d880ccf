package store

import (
	"errors"
	"fmt"

	"github.com/phrazzld/querykit/internal/schema"
)

// Common store errors used across all store implementations.
var (
	// ErrConfiguration is the schema package's configuration error, re-exported
	// so callers of the store only need one import to classify failures.
	// Configuration errors are raised before the store is contacted.
	ErrConfiguration = schema.ErrConfiguration

	// ErrIntegrity is returned when the store rejects a write because it
	// breaches a uniqueness, reference, not-null or check constraint.
	// The concrete error is an *IntegrityError naming the offending field.
	ErrIntegrity = errors.New("integrity violation")

	// ErrStoreUnavailable is returned when the store could not be asked at
	// all: the connection was refused or lost, a timeout or deadline expired,
	// or the database was busy. It is never conflated with an empty result.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrTransactionAborted is returned by a transaction whose body failed.
	// Every effect of the body has been rolled back. The error still unwraps
	// to the cause.
	ErrTransactionAborted = errors.New("transaction aborted")

	// ErrTransactionClosed is returned when an operation, commit or rollback
	// is attempted on a transaction that already committed or aborted.
	ErrTransactionClosed = errors.New("transaction closed")

	// Kind-specific integrity errors

	// ErrDuplicate indicates a unique constraint breach.
	ErrDuplicate = fmt.Errorf("%w: duplicate value", ErrIntegrity)

	// ErrMissingReference indicates a foreign key breach: the referenced
	// record does not exist, or it is still referenced.
	ErrMissingReference = fmt.Errorf("%w: missing reference", ErrIntegrity)

	// ErrRequiredValue indicates a not-null constraint breach.
	ErrRequiredValue = fmt.Errorf("%w: required value", ErrIntegrity)

	// ErrCheckFailed indicates a check constraint breach.
	ErrCheckFailed = fmt.Errorf("%w: check failed", ErrIntegrity)
)

// IntegrityKind says which constraint an integrity violation breached.
type IntegrityKind int

// Integrity violation kinds.
const (
	UniqueViolation IntegrityKind = iota + 1
	ForeignKeyViolation
	NotNullViolation
	CheckViolation
)

// String returns the kind name used in logs and error tables.
func (k IntegrityKind) String() string {
	switch k {
	case UniqueViolation:
		return "unique"
	case ForeignKeyViolation:
		return "foreign key"
	case NotNullViolation:
		return "not null"
	case CheckViolation:
		return "check"
	default:
		return "constraint"
	}
}

func (k IntegrityKind) sentinel() error {
	switch k {
	case UniqueViolation:
		return ErrDuplicate
	case ForeignKeyViolation:
		return ErrMissingReference
	case NotNullViolation:
		return ErrRequiredValue
	case CheckViolation:
		return ErrCheckFailed
	default:
		return ErrIntegrity
	}
}

// IntegrityError is a constraint breach reported by the store, translated
// into schema terms.
type IntegrityError struct {
	Entity     string        // Entity name (e.g. "User")
	Field      string        // Offending field, empty when the store did not say
	Kind       IntegrityKind // Which constraint was breached
	Constraint string        // Store-side constraint name, if known
	Err        error         // Original driver error
}

// Error implements the error interface for IntegrityError.
func (e *IntegrityError) Error() string {
	field := e.Field
	if field == "" {
		field = "?"
	}
	msg := fmt.Sprintf("integrity violation: %s constraint on %s.%s", e.Kind, e.Entity, field)
	if e.Constraint != "" {
		msg += fmt.Sprintf(" (%s)", e.Constraint)
	}
	return msg
}

// Is reports whether target is ErrIntegrity or the sentinel of e's kind.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity || target == e.Kind.sentinel()
}

// Unwrap returns the driver error.
func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// UnavailableError wraps a failure to reach the store.
type UnavailableError struct {
	Operation string // The operation that failed (e.g. "find", "commit")
	Err       error  // Original error
}

// Error implements the error interface for UnavailableError.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Operation, e.Err)
}

// Is reports whether target is ErrStoreUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// Unwrap returns the wrapped error.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// AbortError is returned by a transaction that rolled back because its body
// failed.
type AbortError struct {
	TxID string // Transaction identifier used in log lines
	Err  error  // Why the body failed
}

// Error implements the error interface for AbortError.
func (e *AbortError) Error() string {
	return fmt.Sprintf("transaction %s aborted: %v", e.TxID, e.Err)
}

// Is reports whether target is ErrTransactionAborted.
func (e *AbortError) Is(target error) bool {
	return target == ErrTransactionAborted
}

// Unwrap returns the cause of the abort.
func (e *AbortError) Unwrap() error {
	return e.Err
}

// IsIntegrityError checks if the error is any kind of integrity violation.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

// IsUnavailableError checks if the error means the store could not be asked.
func IsUnavailableError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// Kind classifies an error for presentation: "configuration", "integrity",
// "unavailable", "closed", "aborted" or "internal". An aborted transaction
// is classified by its cause when the cause is known.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrIntegrity):
		return "integrity"
	case errors.Is(err, ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(err, ErrTransactionClosed):
		return "closed"
	case errors.Is(err, ErrTransactionAborted):
		return "aborted"
	default:
		return "internal"
	}
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity name (e.g., "User", "Task")
	Operation string // The operation that failed (e.g., "insert", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
