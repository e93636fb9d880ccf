package postgres

import (
	"strconv"

	"github.com/phrazzld/querykit/internal/platform/sqlexec"
	"github.com/phrazzld/querykit/internal/schema"
)

// DriverName is the database/sql driver registered by pgx's stdlib package.
const DriverName = "pgx"

// Dialect renders statements for PostgreSQL.
type Dialect struct{}

var _ sqlexec.Dialect = Dialect{}

// Name implements sqlexec.Dialect.
func (Dialect) Name() string { return "postgres" }

// Placeholder implements sqlexec.Dialect.
func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// Contains implements sqlexec.Dialect. strpos is case-sensitive and, unlike
// LIKE, treats % and _ in the argument literally.
func (Dialect) Contains(column, arg string) string {
	return "strpos(" + column + ", " + arg + ") > 0"
}

// Paginate implements sqlexec.Dialect.
func (Dialect) Paginate(limit int, hasLimit bool, offset int) string {
	out := ""
	if hasLimit {
		out += " LIMIT " + strconv.Itoa(limit)
	}
	if offset > 0 {
		out += " OFFSET " + strconv.Itoa(offset)
	}
	return out
}

// BindValue implements sqlexec.Dialect. pgx accepts every normalized value
// as is.
func (Dialect) BindValue(_ schema.Field, v any) any { return v }

// MapError implements sqlexec.Dialect.
func (Dialect) MapError(e *schema.Entity, op string, err error) error {
	return MapError(e, op, err)
}
