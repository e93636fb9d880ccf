package sqlexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/querykit/internal/platform/logger"
	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
)

// executor renders statements and runs them against a connection pool or a
// transaction.
type executor struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

func (x executor) find(ctx context.Context, s query.Select) ([]schema.Record, error) {
	e := s.Entity()
	if e == nil {
		return nil, query.ErrUnbuiltStatement
	}
	if limit, ok := s.Limit(); ok && limit == 0 {
		return []schema.Record{}, nil
	}

	b := newBuilder(x.dialect)
	if err := b.selectStmt(s); err != nil {
		return nil, err
	}
	return x.query(ctx, e, "find", b, entityTargets(e))
}

func (x executor) findWithJoin(ctx context.Context, j query.Join) ([]schema.Record, error) {
	e := j.Primary()
	if e == nil {
		return nil, query.ErrUnbuiltStatement
	}
	if limit, ok := j.Limit(); ok && limit == 0 {
		return []schema.Record{}, nil
	}

	targets, err := joinTargets(j)
	if err != nil {
		return nil, err
	}
	b := newBuilder(x.dialect)
	if err := b.joinStmt(j); err != nil {
		return nil, err
	}
	return x.query(ctx, e, "join", b, targets)
}

// insert creates the rows one statement at a time so the results keep the
// input order. Callers provide atomicity by running it in a transaction.
func (x executor) insert(ctx context.Context, s query.Insert) ([]schema.Record, error) {
	e := s.Entity()
	if e == nil {
		return nil, query.ErrUnbuiltStatement
	}

	rows := s.Rows()
	created := make([]schema.Record, 0, len(rows))
	for i, row := range rows {
		b := newBuilder(x.dialect)
		if err := b.insertStmt(e, row); err != nil {
			return nil, err
		}
		recs, err := x.query(ctx, e, "insert", b, entityTargets(e))
		if err != nil {
			return nil, inferReferenceField(err, row)
		}
		if len(recs) != 1 {
			return nil, store.NewStoreError(e.Name(), "insert",
				fmt.Sprintf("row %d returned %d records", i, len(recs)), nil)
		}
		created = append(created, recs[0])
	}
	return created, nil
}

func (x executor) update(ctx context.Context, u query.Update) ([]schema.Record, error) {
	e := u.Entity()
	if e == nil {
		return nil, query.ErrUnbuiltStatement
	}
	if u.Where().IsZero() {
		x.logFrom(ctx).Warn("updating every record", slog.String("entity", e.Name()))
	}

	b := newBuilder(x.dialect)
	if err := b.updateStmt(u); err != nil {
		return nil, err
	}
	recs, err := x.query(ctx, e, "update", b, entityTargets(e))
	if err != nil {
		return nil, inferReferenceField(err, u.Changes())
	}
	sortByIdentity(e, recs)
	return recs, nil
}

func (x executor) delete(ctx context.Context, d query.Delete) ([]schema.Record, error) {
	e := d.Entity()
	if e == nil {
		return nil, query.ErrUnbuiltStatement
	}
	if d.Where().IsZero() {
		x.logFrom(ctx).Warn("deleting every record", slog.String("entity", e.Name()))
	}

	b := newBuilder(x.dialect)
	if err := b.deleteStmt(d); err != nil {
		return nil, err
	}
	recs, err := x.query(ctx, e, "delete", b, entityTargets(e))
	if err != nil {
		return nil, err
	}
	sortByIdentity(e, recs)
	return recs, nil
}

func (x executor) logFrom(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, x.logger)
}

// query runs a statement that returns rows and normalizes them.
func (x executor) query(
	ctx context.Context,
	e *schema.Entity,
	op string,
	b *builder,
	targets []target,
) ([]schema.Record, error) {
	log := x.logFrom(ctx).With(slog.String("op", op), slog.String("entity", e.Name()))
	text := b.String()
	log.Debug("running statement", slog.String("sql", text), slog.Int("args", len(b.args)))

	rows, err := x.db.QueryContext(ctx, text, b.args...)
	if err != nil {
		return nil, x.fail(log, e, op, err)
	}
	defer func() { _ = rows.Close() }()

	recs, err := scanRecords(rows, targets)
	if err != nil {
		return nil, x.fail(log, e, op, err)
	}
	log.Debug("statement finished", slog.Int("records", len(recs)))
	return recs, nil
}

func (x executor) fail(log *slog.Logger, e *schema.Entity, op string, err error) error {
	mapped := translate(x.dialect, e, op, err)
	switch {
	case store.IsIntegrityError(mapped):
		log.Warn("statement rejected by store", slog.String("error", mapped.Error()))
	case errors.Is(err, context.Canceled):
		log.Debug("statement cancelled", slog.String("error", err.Error()))
	default:
		log.Error("statement failed",
			slog.String("error", err.Error()),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}
	return mapped
}

// inferReferenceField fills the field of a foreign key violation the driver
// did not name, when the change set assigns exactly one reference field.
func inferReferenceField(err error, changes schema.ChangeSet) error {
	var ie *store.IntegrityError
	if !errors.As(err, &ie) || ie.Kind != store.ForeignKeyViolation || ie.Field != "" {
		return err
	}
	e := changes.Entity()
	if e == nil {
		return err
	}
	candidate := ""
	for _, name := range changes.Fields() {
		f, ferr := e.Field(name)
		if ferr != nil || f.References == nil {
			continue
		}
		if candidate != "" {
			return err
		}
		candidate = name
	}
	ie.Field = candidate
	return err
}
