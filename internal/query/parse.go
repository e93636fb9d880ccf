package query

import (
	"fmt"
	"strings"

	"github.com/phrazzld/querykit/internal/schema"
)

// filterOps are tried in order, so two-character operators win over their
// one-character prefixes.
var filterOps = []struct {
	token string
	op    Op
}{
	{">=", OpGte},
	{"<=", OpLte},
	{"=", OpEq},
	{"~", OpContains},
	{">", OpGt},
	{"<", OpLt},
}

// ParseFilter parses the textual filter form used by the console and the
// HTTP surface: field<op>value where op is one of = ~ > < >= <=, and "~"
// means contains. On nullable fields the value "null" means absent.
//
//	username~ev
//	age>=18
//	category_id=null
func ParseFilter(e *schema.Entity, text string) (Predicate, error) {
	i := strings.IndexAny(text, "=~<>")
	if i <= 0 {
		return Predicate{}, fmt.Errorf("%w: filter %q is not of the form field<op>value",
			schema.ErrConfiguration, text)
	}
	name := strings.TrimSpace(text[:i])
	rest := text[i:]

	var (
		op    Op
		token string
	)
	for _, candidate := range filterOps {
		if strings.HasPrefix(rest, candidate.token) {
			op, token = candidate.op, candidate.token
			break
		}
	}
	raw := strings.TrimSpace(rest[len(token):])

	f, err := e.Field(name)
	if err != nil {
		return Predicate{}, err
	}
	b := On(e)
	if op == OpContains {
		return b.Contains(name, raw)
	}
	v, err := f.ParseValue(raw)
	if err != nil {
		return Predicate{}, err
	}
	return b.compare(op, name, v)
}

// ParseFilters parses several filters and combines them with AND, or with
// OR when anyOf is true. No filters yields the zero predicate.
func ParseFilters(e *schema.Entity, texts []string, anyOf bool) (Predicate, error) {
	if len(texts) == 0 {
		return Predicate{}, nil
	}
	ps := make([]Predicate, 0, len(texts))
	for _, text := range texts {
		p, err := ParseFilter(e, text)
		if err != nil {
			return Predicate{}, err
		}
		ps = append(ps, p)
	}
	if anyOf {
		return Or(ps...)
	}
	return And(ps...)
}

// ParseOrder parses "field" or "field:asc" / "field:desc" into an option.
func ParseOrder(text string) (Option, error) {
	name, dir, _ := strings.Cut(text, ":")
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
		return OrderBy(strings.TrimSpace(name), Asc), nil
	case "desc":
		return OrderBy(strings.TrimSpace(name), Desc), nil
	default:
		return nil, fmt.Errorf("%w: unknown sort direction %q", schema.ErrConfiguration, dir)
	}
}

// ParseColumn parses one projected join column. A bare field belongs to the
// primary entity; "<entity>.<field>" names a field of the joined entity by
// entity or table name. An optional "=alias" renames the column.
//
//	title
//	category.name=category
func ParseColumn(primary, joined *schema.Entity, text string) (Column, error) {
	src, alias, _ := strings.Cut(text, "=")
	src = strings.TrimSpace(src)

	var c Column
	if prefix, field, ok := strings.Cut(src, "."); ok {
		switch strings.ToLower(prefix) {
		case strings.ToLower(joined.Name()), strings.ToLower(joined.Table()):
			c = Joined(field)
		case strings.ToLower(primary.Name()), strings.ToLower(primary.Table()):
			c = Primary(field)
		default:
			return Column{}, fmt.Errorf("%w %q in column %q", schema.ErrUnknownEntity, prefix, text)
		}
	} else {
		c = Primary(src)
	}
	if alias = strings.TrimSpace(alias); alias != "" {
		c = c.As(alias)
	}
	return c, nil
}

// ParseJoinKey parses "primary_field=joined_field". Empty text selects the
// single primary field that references the joined entity.
func ParseJoinKey(primary, joined *schema.Entity, text string) (JoinKey, error) {
	if text != "" {
		p, j, ok := strings.Cut(text, "=")
		if !ok {
			return JoinKey{}, fmt.Errorf("%w: join key %q is not of the form primary_field=joined_field",
				schema.ErrConfiguration, text)
		}
		return JoinOn(strings.TrimSpace(p), strings.TrimSpace(j)), nil
	}
	var (
		key   JoinKey
		found int
	)
	for _, f := range primary.Fields() {
		if f.References != nil && strings.EqualFold(f.References.Entity, joined.Name()) {
			key = JoinOn(f.Name, f.References.Field)
			found++
		}
	}
	switch found {
	case 1:
		return key, nil
	case 0:
		return JoinKey{}, fmt.Errorf("%w: %s has no reference to %s; name the join key",
			schema.ErrConfiguration, primary.Name(), joined.Name())
	default:
		return JoinKey{}, fmt.Errorf("%w: %s references %s more than once; name the join key",
			schema.ErrConfiguration, primary.Name(), joined.Name())
	}
}
