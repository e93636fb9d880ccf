package sqlexec

import (
	"database/sql"
	"sort"

	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
)

// target names one scanned column and the field that normalizes it.
type target struct {
	name  string
	field schema.Field
}

func entityTargets(e *schema.Entity) []target {
	fields := e.Fields()
	out := make([]target, len(fields))
	for i, f := range fields {
		out[i] = target{name: f.Name, field: f}
	}
	return out
}

func joinTargets(j query.Join) ([]target, error) {
	cols := j.Columns()
	out := make([]target, len(cols))
	for i, c := range cols {
		src := j.Primary()
		if c.Side() == query.JoinedSide {
			src = j.Joined()
		}
		f, err := src.Field(c.Field())
		if err != nil {
			return nil, err
		}
		out[i] = target{name: c.Name(), field: f}
	}
	return out, nil
}

func scanRecords(rows *sql.Rows, targets []target) ([]schema.Record, error) {
	records := []schema.Record{}
	values := make([]any, len(targets))
	dest := make([]any, len(targets))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rec := make(schema.Record, len(targets))
		for i, t := range targets {
			v, err := t.field.FromStore(values[i])
			if err != nil {
				return nil, err
			}
			rec[t.name] = v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func sortByIdentity(e *schema.Entity, records []schema.Record) {
	id := e.Identity().Name
	sort.SliceStable(records, func(i, j int) bool {
		a, _ := records[i].Int(id)
		b, _ := records[j].Int(id)
		return a < b
	})
}
