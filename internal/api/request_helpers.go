package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
)

// entityParam resolves a path parameter against the registry.
func (h *RecordHandler) entityParam(r *http.Request, name string) (*schema.Entity, error) {
	return h.registry.Entity(chi.URLParam(r, name))
}

// boolParam reads a boolean query parameter; absent means false.
func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: query parameter %s=%q is not a boolean",
			schema.ErrConfiguration, name, raw)
	}
	return v, nil
}

// intParam reads a non-negative integer query parameter.
func intParam(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: query parameter %s=%q is not an integer",
			schema.ErrConfiguration, name, raw)
	}
	return v, true, nil
}

// listParam collects a repeatable, comma-separable query parameter.
func listParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// whereParam parses the repeatable where parameter, ORed when any=true.
func whereParam(r *http.Request, e *schema.Entity) (query.Predicate, error) {
	anyOf, err := boolParam(r, "any")
	if err != nil {
		return query.Predicate{}, err
	}
	return query.ParseFilters(e, r.URL.Query()["where"], anyOf)
}

// windowParams parses where, any, order, limit and offset.
func windowParams(r *http.Request, e *schema.Entity) ([]query.Option, error) {
	where, err := whereParam(r, e)
	if err != nil {
		return nil, err
	}
	opts := []query.Option{query.Where(where)}
	for _, text := range listParam(r, "order") {
		opt, err := query.ParseOrder(text)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	if limit, ok, err := intParam(r, "limit"); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, query.Limit(limit))
	}
	if offset, ok, err := intParam(r, "offset"); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, query.Offset(offset))
	}
	return opts, nil
}
