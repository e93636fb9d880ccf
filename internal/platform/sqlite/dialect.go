package sqlite

import (
	"net/url"
	"strconv"
	"time"

	"github.com/phrazzld/querykit/internal/platform/sqlexec"
	"github.com/phrazzld/querykit/internal/schema"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// busyTimeout is how long a connection waits on a locked database before
// failing with SQLITE_BUSY.
const busyTimeout = 5 * time.Second

// DSN builds a modernc.org/sqlite data source name for the database file at
// path. Foreign keys are enforced, writers wait on locks for busyTimeout and
// transactions take the write lock when they begin, so two transactions never
// deadlock upgrading from a read lock.
func DSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout("+strconv.FormatInt(busyTimeout.Milliseconds(), 10)+")")
	if path != MemoryPath {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Dialect renders statements for SQLite.
type Dialect struct{}

var _ sqlexec.Dialect = Dialect{}

// Name implements sqlexec.Dialect.
func (Dialect) Name() string { return "sqlite" }

// Placeholder implements sqlexec.Dialect.
func (Dialect) Placeholder(int) string { return "?" }

// Contains implements sqlexec.Dialect. instr is case-sensitive, unlike LIKE.
func (Dialect) Contains(column, arg string) string {
	return "instr(" + column + ", " + arg + ") > 0"
}

// Paginate implements sqlexec.Dialect. SQLite only accepts OFFSET after a
// LIMIT; a negative limit means unlimited.
func (Dialect) Paginate(limit int, hasLimit bool, offset int) string {
	switch {
	case hasLimit && offset > 0:
		return " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(offset)
	case hasLimit:
		return " LIMIT " + strconv.Itoa(limit)
	case offset > 0:
		return " LIMIT -1 OFFSET " + strconv.Itoa(offset)
	default:
		return ""
	}
}

// BindValue implements sqlexec.Dialect. Booleans are stored as 0/1 and
// timestamps as fixed-width UTC text, which orders chronologically.
func (Dialect) BindValue(_ schema.Field, v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return x.UTC().Format(schema.TimestampLayout)
	default:
		return v
	}
}

// MapError implements sqlexec.Dialect.
func (Dialect) MapError(e *schema.Entity, op string, err error) error {
	return MapError(e, op, err)
}
