package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
)

// grammar is the set of console intents. A fresh value is parsed per line.
type grammar struct {
	Find     FindCmd     `cmd:"" help:"Read records of an entity."`
	Join     JoinCmd     `cmd:"" help:"Left join two entities."`
	Insert   InsertCmd   `cmd:"" help:"Create records; separate rows with +."`
	Update   UpdateCmd   `cmd:"" help:"Change matching records."`
	Delete   DeleteCmd   `cmd:"" help:"Remove matching records."`
	Begin    BeginCmd    `cmd:"" help:"Open a transaction for later intents."`
	Commit   CommitCmd   `cmd:"" help:"Commit the open transaction."`
	Rollback RollbackCmd `cmd:"" help:"Roll back the open transaction."`
	Entities EntitiesCmd `cmd:"" help:"List entities and their fields."`
	Format   FormatCmd   `cmd:"" help:"Switch the output format."`
	Help     HelpCmd     `cmd:"" help:"Show the intent reference."`
	Exit     ExitCmd     `cmd:"" aliases:"quit" help:"Leave the console."`
}

func dispatch(ctx context.Context, s *Session, args []string) error {
	var (
		g      grammar
		exited bool
	)
	parser, err := kong.New(&g,
		kong.Name("querykit"),
		kong.Description("querykit console"),
		kong.Writers(s.out, s.out),
		kong.Exit(func(int) { exited = true }),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		return fmt.Errorf("building console grammar: %w", err)
	}

	kctx, err := parser.Parse(args)
	if exited {
		// --help was printed.
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", schema.ErrConfiguration, err)
	}
	kctx.BindTo(ctx, (*context.Context)(nil))
	return kctx.Run(s)
}

// Window holds the flags shared by find and join.
type Window struct {
	Any    bool     `help:"Match any filter instead of all."`
	Order  []string `short:"o" help:"Sort keys as field[:asc|desc]."`
	Limit  int      `short:"l" default:"-1" help:"Maximum number of records; -1 for no limit."`
	Offset int      `help:"Number of records to skip."`
}

func (w Window) options(e *schema.Entity, filters []string) ([]query.Option, error) {
	where, err := query.ParseFilters(e, filters, w.Any)
	if err != nil {
		return nil, err
	}
	opts := []query.Option{query.Where(where)}
	for _, text := range w.Order {
		opt, err := query.ParseOrder(text)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	if w.Limit >= 0 {
		opts = append(opts, query.Limit(w.Limit))
	}
	if w.Offset != 0 {
		opts = append(opts, query.Offset(w.Offset))
	}
	return opts, nil
}

// FindCmd reads records.
type FindCmd struct {
	Entity  string   `arg:"" help:"Entity or table name."`
	Filters []string `arg:"" optional:"" help:"Filters as field<op>value, op one of = ~ > < >= <=."`
	Window  `embed:""`
}

func (c *FindCmd) Run(ctx context.Context, s *Session) error {
	e, err := s.entity(c.Entity)
	if err != nil {
		return err
	}
	opts, err := c.options(e, c.Filters)
	if err != nil {
		return err
	}
	stmt, err := query.NewSelect(e, opts...)
	if err != nil {
		return err
	}
	recs, err := s.executor().Find(ctx, stmt)
	if err != nil {
		return err
	}
	return s.render.Records(e.FieldNames(), recs)
}

// JoinCmd left joins the primary entity with the joined one.
type JoinCmd struct {
	Primary string   `arg:"" help:"Primary entity."`
	Joined  string   `arg:"" help:"Joined entity."`
	On      string   `help:"Join key as primary_field=joined_field; inferred from a reference when empty."`
	Fields  []string `short:"f" help:"Projection: field, <entity>.<field>, optional =alias."`
	Where   []string `short:"w" sep:"none" help:"Filters on the primary entity."`
	Window  `embed:""`
}

func (c *JoinCmd) Run(ctx context.Context, s *Session) error {
	primary, err := s.entity(c.Primary)
	if err != nil {
		return err
	}
	joined, err := s.entity(c.Joined)
	if err != nil {
		return err
	}
	key, err := query.ParseJoinKey(primary, joined, c.On)
	if err != nil {
		return err
	}
	cols := make([]query.Column, 0, len(c.Fields))
	for _, text := range c.Fields {
		col, err := query.ParseColumn(primary, joined, text)
		if err != nil {
			return err
		}
		cols = append(cols, col)
	}
	opts, err := c.options(primary, c.Where)
	if err != nil {
		return err
	}
	stmt, err := query.NewJoin(primary, joined, key, cols, opts...)
	if err != nil {
		return err
	}
	recs, err := s.executor().FindWithJoin(ctx, stmt)
	if err != nil {
		return err
	}
	return s.render.Records(stmt.ColumnNames(), recs)
}

// InsertCmd creates records. Each row is a run of field=value pairs; rows
// are separated by a lone "+".
type InsertCmd struct {
	Entity string   `arg:"" help:"Entity or table name."`
	Values []string `arg:"" optional:"" help:"field=value pairs; + starts the next row."`
}

func (c *InsertCmd) Run(ctx context.Context, s *Session) error {
	e, err := s.entity(c.Entity)
	if err != nil {
		return err
	}
	var (
		rows    []schema.ChangeSet
		current []string
	)
	flush := func() error {
		cs, err := changeSet(e, current)
		if err != nil {
			return err
		}
		rows = append(rows, cs)
		current = nil
		return nil
	}
	for _, v := range c.Values {
		if v == "+" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		current = append(current, v)
	}
	if err := flush(); err != nil {
		return err
	}

	stmt, err := query.NewInsert(e, rows...)
	if err != nil {
		return err
	}
	recs, err := s.executor().Insert(ctx, stmt)
	if err != nil {
		return err
	}
	s.render.Note("inserted %d", len(recs))
	return s.render.Records(e.FieldNames(), recs)
}

// UpdateCmd changes the records matching --where, or every record with --all.
type UpdateCmd struct {
	Entity  string   `arg:"" help:"Entity or table name."`
	Changes []string `arg:"" help:"field=value assignments."`
	Where   []string `short:"w" sep:"none" help:"Filters selecting the records to change."`
	Any     bool     `help:"Match any filter instead of all."`
	All     bool     `help:"Change every record."`
}

func (c *UpdateCmd) Run(ctx context.Context, s *Session) error {
	e, err := s.entity(c.Entity)
	if err != nil {
		return err
	}
	changes, err := changeSet(e, c.Changes)
	if err != nil {
		return err
	}
	where, err := broadOrFiltered(e, c.Where, c.Any, c.All)
	if err != nil {
		return err
	}
	var stmt query.Update
	if c.All {
		stmt, err = query.NewUpdateAll(changes)
	} else {
		stmt, err = query.NewUpdate(changes, where)
	}
	if err != nil {
		return err
	}
	recs, err := s.executor().Update(ctx, stmt)
	if err != nil {
		return err
	}
	s.render.Note("updated %d", len(recs))
	return s.render.Records(e.FieldNames(), recs)
}

// DeleteCmd removes the records matching its filters, or every record with --all.
type DeleteCmd struct {
	Entity  string   `arg:"" help:"Entity or table name."`
	Filters []string `arg:"" optional:"" help:"Filters selecting the records to remove."`
	Any     bool     `help:"Match any filter instead of all."`
	All     bool     `help:"Remove every record."`
}

func (c *DeleteCmd) Run(ctx context.Context, s *Session) error {
	e, err := s.entity(c.Entity)
	if err != nil {
		return err
	}
	where, err := broadOrFiltered(e, c.Filters, c.Any, c.All)
	if err != nil {
		return err
	}
	var stmt query.Delete
	if c.All {
		stmt, err = query.NewDeleteAll(e)
	} else {
		stmt, err = query.NewDelete(where)
	}
	if err != nil {
		return err
	}
	recs, err := s.executor().Delete(ctx, stmt)
	if err != nil {
		return err
	}
	s.render.Note("deleted %d", len(recs))
	return s.render.Records(e.FieldNames(), recs)
}

func broadOrFiltered(e *schema.Entity, filters []string, anyOf, all bool) (query.Predicate, error) {
	if all && len(filters) > 0 {
		return query.Predicate{}, fmt.Errorf("%w: --all cannot be combined with filters", schema.ErrConfiguration)
	}
	if !all && len(filters) == 0 {
		return query.Predicate{}, query.ErrBroadMutation
	}
	return query.ParseFilters(e, filters, anyOf)
}

// changeSet parses field=value pairs with each field's textual rules.
func changeSet(e *schema.Entity, pairs []string) (schema.ChangeSet, error) {
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return schema.ChangeSet{}, fmt.Errorf("%w: %q is not of the form field=value",
				schema.ErrConfiguration, pair)
		}
		f, err := e.Field(strings.TrimSpace(name))
		if err != nil {
			return schema.ChangeSet{}, err
		}
		v, err := f.ParseValue(raw)
		if err != nil {
			return schema.ChangeSet{}, err
		}
		values[f.Name] = v
	}
	return schema.NewChangeSet(e, values)
}

// BeginCmd opens a session transaction.
type BeginCmd struct{}

func (BeginCmd) Run(ctx context.Context, s *Session) error { return s.begin(ctx) }

// CommitCmd commits the session transaction.
type CommitCmd struct{}

func (CommitCmd) Run(ctx context.Context, s *Session) error { return s.commit(ctx) }

// RollbackCmd discards the session transaction.
type RollbackCmd struct{}

func (RollbackCmd) Run(ctx context.Context, s *Session) error { return s.rollback(ctx) }

// EntitiesCmd lists the registry.
type EntitiesCmd struct{}

func (EntitiesCmd) Run(s *Session) error {
	entities := s.registry.Entities()
	recs := make([]schema.Record, len(entities))
	for i, e := range entities {
		recs[i] = schema.Record{
			"entity": e.Name(),
			"table":  e.Table(),
			"fields": strings.Join(describeFields(e), ", "),
		}
	}
	return s.render.Records([]string{"entity", "table", "fields"}, recs)
}

func describeFields(e *schema.Entity) []string {
	out := make([]string, 0, len(e.Fields()))
	for _, f := range e.Fields() {
		desc := f.Name + " " + f.Type.String()
		if f.Nullable {
			desc += "?"
		}
		if f.References != nil {
			desc += " -> " + f.References.Entity + "." + f.References.Field
		}
		out = append(out, desc)
	}
	return out
}

// FormatCmd switches the output format.
type FormatCmd struct {
	Format string `arg:"" enum:"table,json,yaml" help:"table, json or yaml."`
}

func (c *FormatCmd) Run(s *Session) error {
	f, err := ParseFormat(c.Format)
	if err != nil {
		return err
	}
	s.render.SetFormat(f)
	return nil
}

// HelpCmd prints the intent reference.
type HelpCmd struct{}

func (HelpCmd) Run(s *Session) error {
	_, err := fmt.Fprint(s.out, helpText)
	return err
}

// ExitCmd ends the session, rolling back an open transaction.
type ExitCmd struct{}

func (ExitCmd) Run(ctx context.Context, s *Session) error {
	s.Close(ctx)
	s.done = true
	return nil
}

const helpText = `Intents:
  find <entity> [filter...] [--any] [-o field[:desc]] [-l n] [--offset n]
  join <primary> <joined> [--on a=b] [-f col,...] [-w filter] [-o ...] [-l n]
  insert <entity> field=value... [+ field=value...]
  update <entity> field=value... (-w filter... [--any] | --all)
  delete <entity> (filter... [--any] | --all)
  begin | commit | rollback
  entities
  format table|json|yaml
  help | exit

Filters are field<op>value with op one of = ~ > < >= <= (~ is contains).
On nullable fields the value null means absent.
`
