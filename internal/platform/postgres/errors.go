package postgres

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// foreignKeyViolationCode is the PostgreSQL error code for foreign key violations
	foreignKeyViolationCode = "23503"

	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"

	// connectionExceptionClass prefixes every connection exception code (08xxx).
	connectionExceptionClass = "08"

	queryCanceledCode      = "57014"
	adminShutdownCode      = "57P01"
	crashShutdownCode      = "57P02"
	cannotConnectNowCode   = "57P03"
	tooManyConnectionsCode = "53300"
)

// keyDetail extracts the column list from details such as
// `Key (email)=(eve@example.com) already exists.`
var keyDetail = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapError maps a PostgreSQL error onto the store error taxonomy: constraint
// breaches become *store.IntegrityError and connection failures become
// *store.UnavailableError. It returns nil for errors it does not recognize,
// so the caller can fall back to a generic store error.
func MapError(e *schema.Entity, op string, err error) error {
	if err == nil {
		return nil
	}

	entity := ""
	if e != nil {
		entity = e.Name()
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return integrity(entity, store.UniqueViolation, fieldFromDetail(pgErr), pgErr, err)
		case foreignKeyViolationCode:
			return integrity(entity, store.ForeignKeyViolation, fieldFromDetail(pgErr), pgErr, err)
		case notNullViolationCode:
			return integrity(entity, store.NotNullViolation, pgErr.ColumnName, pgErr, err)
		case checkViolationCode:
			return integrity(entity, store.CheckViolation, pgErr.ColumnName, pgErr, err)
		case queryCanceledCode, adminShutdownCode, crashShutdownCode,
			cannotConnectNowCode, tooManyConnectionsCode:
			return &store.UnavailableError{Operation: op, Err: err}
		}
		if strings.HasPrefix(pgErr.Code, connectionExceptionClass) {
			return &store.UnavailableError{Operation: op, Err: err}
		}
		return nil
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return &store.UnavailableError{Operation: op, Err: err}
	}
	return nil
}

func integrity(entity string, kind store.IntegrityKind, field string, pgErr *pgconn.PgError, err error) error {
	if pgErr.TableName != "" && entity == "" {
		entity = pgErr.TableName
	}
	return &store.IntegrityError{
		Entity:     entity,
		Field:      field,
		Kind:       kind,
		Constraint: pgErr.ConstraintName,
		Err:        err,
	}
}

// fieldFromDetail returns the single column named in the error detail, or
// the column encoded in a conventionally named constraint
// (<table>_<column>_key, <table>_<column>_fkey).
func fieldFromDetail(pgErr *pgconn.PgError) string {
	if m := keyDetail.FindStringSubmatch(pgErr.Detail); m != nil && !strings.Contains(m[1], ",") {
		return strings.Trim(strings.TrimSpace(m[1]), `"`)
	}
	name := pgErr.ConstraintName
	if pgErr.TableName != "" && strings.HasPrefix(name, pgErr.TableName+"_") {
		name = strings.TrimPrefix(name, pgErr.TableName+"_")
		for _, suffix := range []string{"_fkey", "_key"} {
			if strings.HasSuffix(name, suffix) {
				return strings.TrimSuffix(name, suffix)
			}
		}
	}
	return ""
}
