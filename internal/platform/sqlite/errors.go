package sqlite

import (
	"errors"
	"regexp"
	"strings"

	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// constraintMessage matches SQLite's constraint failure texts, e.g.
// "UNIQUE constraint failed: users.email" or "FOREIGN KEY constraint failed".
var constraintMessage = regexp.MustCompile(`(UNIQUE|NOT NULL|CHECK|FOREIGN KEY) constraint failed(?:: ([^\s(]+(?:, [^\s(]+)*))?`)

// MapError maps a modernc.org/sqlite error onto the store error taxonomy:
// constraint failures become *store.IntegrityError and busy, locked or
// unreachable databases become *store.UnavailableError. It returns nil for
// errors it does not recognize.
//
// SQLite does not name the column of a foreign key failure; the executor
// fills it in from the change set when it can.
func MapError(e *schema.Entity, op string, err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}

	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return constraintError(e, sqliteErr, err)
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN,
		sqlite3.SQLITE_IOERR, sqlite3.SQLITE_INTERRUPT:
		return &store.UnavailableError{Operation: op, Err: err}
	}
	return nil
}

func constraintError(e *schema.Entity, sqliteErr *sqlite.Error, err error) error {
	ie := &store.IntegrityError{Err: err}
	if e != nil {
		ie.Entity = e.Name()
	}

	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		ie.Kind = store.UniqueViolation
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		ie.Kind = store.ForeignKeyViolation
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		ie.Kind = store.NotNullViolation
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		ie.Kind = store.CheckViolation
	}

	m := constraintMessage.FindStringSubmatch(sqliteErr.Error())
	if m == nil {
		if ie.Kind == 0 {
			ie.Kind = store.CheckViolation
		}
		return ie
	}
	if ie.Kind == 0 {
		ie.Kind = kindFromMessage(m[1])
	}

	target := m[2]
	switch ie.Kind {
	case store.CheckViolation:
		ie.Constraint = target
	case store.UniqueViolation, store.NotNullViolation:
		// "table.column"; composite keys list several and name no single field.
		if target != "" && !strings.Contains(target, ",") {
			table, column, ok := strings.Cut(target, ".")
			if ok {
				ie.Field = column
				if ie.Entity == "" {
					ie.Entity = table
				}
			}
		}
	}
	return ie
}

func kindFromMessage(kind string) store.IntegrityKind {
	switch kind {
	case "UNIQUE":
		return store.UniqueViolation
	case "FOREIGN KEY":
		return store.ForeignKeyViolation
	case "NOT NULL":
		return store.NotNullViolation
	default:
		return store.CheckViolation
	}
}
