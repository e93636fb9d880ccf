package sqlexec

import (
	"strings"

	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
)

// Table aliases used by joins.
const (
	primaryAlias = "p"
	joinedAlias  = "j"
)

// builder accumulates one SQL statement and its bound arguments.
type builder struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

func newBuilder(d Dialect) *builder {
	return &builder{d: d}
}

func (b *builder) String() string { return b.sb.String() }

func (b *builder) write(parts ...string) {
	for _, p := range parts {
		b.sb.WriteString(p)
	}
}

// bind records v as the next argument and returns its placeholder.
func (b *builder) bind(f schema.Field, v any) string {
	b.args = append(b.args, b.d.BindValue(f, v))
	return b.d.Placeholder(len(b.args))
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func column(alias, name string) string {
	if alias == "" {
		return quote(name)
	}
	return alias + "." + quote(name)
}

func columnList(e *schema.Entity, alias string) string {
	names := e.FieldNames()
	cols := make([]string, len(names))
	for i, name := range names {
		cols[i] = column(alias, name)
	}
	return strings.Join(cols, ", ")
}

func (b *builder) where(e *schema.Entity, alias string, p query.Predicate) error {
	if p.IsZero() {
		return nil
	}
	b.write(" WHERE ")
	return b.predicate(e, alias, p)
}

func (b *builder) predicate(e *schema.Entity, alias string, p query.Predicate) error {
	switch p.Op() {
	case query.OpAnd, query.OpOr:
		b.write("(")
		for i, o := range p.Operands() {
			if i > 0 {
				b.write(" ", p.Op().String(), " ")
			}
			if err := b.predicate(e, alias, o); err != nil {
				return err
			}
		}
		b.write(")")
		return nil
	}

	f, err := e.Field(p.Field())
	if err != nil {
		return err
	}
	col := column(alias, f.Name)
	switch p.Op() {
	case query.OpEq:
		if p.Value() == nil {
			b.write(col, " IS NULL")
			return nil
		}
		b.write(col, " = ", b.bind(f, p.Value()))
	case query.OpContains:
		b.write(b.d.Contains(col, b.bind(f, p.Value())))
	default:
		b.write(col, " ", p.Op().String(), " ", b.bind(f, p.Value()))
	}
	return nil
}

// orderBy renders the requested sort keys followed by the identity, so that
// equal keys still come back in a stable order and pages never overlap.
// Nulls sort first ascending and last descending in every dialect.
func (b *builder) orderBy(e *schema.Entity, alias string, orders []query.Order) error {
	identity := e.Identity().Name
	parts := make([]string, 0, len(orders)+1)
	sawIdentity := false
	for _, o := range orders {
		f, err := e.Field(o.Field)
		if err != nil {
			return err
		}
		part := column(alias, f.Name)
		if o.Direction == query.Desc {
			part += " DESC"
			if f.Nullable {
				part += " NULLS LAST"
			}
		} else {
			part += " ASC"
			if f.Nullable {
				part += " NULLS FIRST"
			}
		}
		parts = append(parts, part)
		if f.Name == identity {
			sawIdentity = true
		}
	}
	if !sawIdentity {
		parts = append(parts, column(alias, identity)+" ASC")
	}
	b.write(" ORDER BY ", strings.Join(parts, ", "))
	return nil
}

func (b *builder) selectStmt(s query.Select) error {
	e := s.Entity()
	b.write("SELECT ", columnList(e, ""), " FROM ", quote(e.Table()))
	if err := b.where(e, "", s.Where()); err != nil {
		return err
	}
	if err := b.orderBy(e, "", s.Order()); err != nil {
		return err
	}
	limit, hasLimit := s.Limit()
	b.write(b.d.Paginate(limit, hasLimit, s.Offset()))
	return nil
}

func (b *builder) joinStmt(j query.Join) error {
	primary, joined := j.Primary(), j.Joined()

	cols := j.Columns()
	list := make([]string, len(cols))
	for i, c := range cols {
		if c.Side() == query.JoinedSide {
			list[i] = column(joinedAlias, c.Field())
		} else {
			list[i] = column(primaryAlias, c.Field())
		}
	}

	key := j.Key()
	b.write("SELECT ", strings.Join(list, ", "),
		" FROM ", quote(primary.Table()), " AS ", primaryAlias,
		" LEFT JOIN ", quote(joined.Table()), " AS ", joinedAlias,
		" ON ", column(primaryAlias, key.Primary), " = ", column(joinedAlias, key.Joined))
	if err := b.where(primary, primaryAlias, j.Where()); err != nil {
		return err
	}
	if err := b.orderBy(primary, primaryAlias, j.Order()); err != nil {
		return err
	}
	limit, hasLimit := j.Limit()
	b.write(b.d.Paginate(limit, hasLimit, j.Offset()))
	return nil
}

func (b *builder) insertStmt(e *schema.Entity, row schema.ChangeSet) error {
	b.write("INSERT INTO ", quote(e.Table()))
	names := row.Fields()
	if len(names) == 0 {
		b.write(" DEFAULT VALUES")
	} else {
		cols := make([]string, len(names))
		marks := make([]string, len(names))
		for i, name := range names {
			f, err := e.Field(name)
			if err != nil {
				return err
			}
			v, _ := row.Value(name)
			cols[i] = quote(name)
			marks[i] = b.bind(f, v)
		}
		b.write(" (", strings.Join(cols, ", "), ") VALUES (", strings.Join(marks, ", "), ")")
	}
	b.write(" RETURNING ", columnList(e, ""))
	return nil
}

func (b *builder) updateStmt(u query.Update) error {
	e := u.Entity()
	changes := u.Changes()
	names := changes.Fields()
	sets := make([]string, len(names))
	for i, name := range names {
		f, err := e.Field(name)
		if err != nil {
			return err
		}
		v, _ := changes.Value(name)
		sets[i] = quote(name) + " = " + b.bind(f, v)
	}
	b.write("UPDATE ", quote(e.Table()), " SET ", strings.Join(sets, ", "))
	if err := b.where(e, "", u.Where()); err != nil {
		return err
	}
	b.write(" RETURNING ", columnList(e, ""))
	return nil
}

func (b *builder) deleteStmt(d query.Delete) error {
	e := d.Entity()
	b.write("DELETE FROM ", quote(e.Table()))
	if err := b.where(e, "", d.Where()); err != nil {
		return err
	}
	b.write(" RETURNING ", columnList(e, ""))
	return nil
}
