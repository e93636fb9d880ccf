package sqlexec

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
)

// Dialect adapts statement rendering and error translation to one SQL
// engine. Implementations live in internal/platform/postgres and
// internal/platform/sqlite.
type Dialect interface {
	// Name identifies the dialect in logs.
	Name() string

	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder(n int) string

	// Contains renders a case-sensitive substring test of column against
	// the bound argument arg.
	Contains(column, arg string) string

	// Paginate renders the LIMIT/OFFSET tail of a read. hasLimit is false
	// for unlimited reads; offset is zero when absent.
	Paginate(limit int, hasLimit bool, offset int) string

	// BindValue converts a normalized value of f into a driver argument.
	BindValue(f schema.Field, v any) any

	// MapError translates a driver error raised while running op against e
	// into an *store.IntegrityError or *store.UnavailableError. It returns
	// nil when the error is not one it recognizes.
	MapError(e *schema.Entity, op string, err error) error
}

// IsConnectionFailure reports whether err means the store could not be
// reached or did not answer in time, independent of the driver.
func IsConnectionFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// translate maps err onto the store error taxonomy: the dialect's own
// mapping first, then driver-independent connection failures, then a
// StoreError carrying the entity and operation.
func translate(d Dialect, e *schema.Entity, op string, err error) error {
	if err == nil {
		return nil
	}
	if mapped := d.MapError(e, op, err); mapped != nil {
		return mapped
	}
	if IsConnectionFailure(err) {
		return &store.UnavailableError{Operation: op, Err: err}
	}
	name := "store"
	if e != nil {
		name = e.Name()
	}
	return store.NewStoreError(name, op, "statement failed", err)
}
