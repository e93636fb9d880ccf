package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/querykit/internal/api/shared"
	"github.com/phrazzld/querykit/internal/platform/logger"
	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
)

// RecordHandler serves find, insert, update, delete and join for every
// entity of a registry.
type RecordHandler struct {
	store    store.Store
	registry *schema.Registry
	logger   *slog.Logger
}

// NewRecordHandler creates a RecordHandler. A nil registry means
// schema.Default().
func NewRecordHandler(st store.Store, registry *schema.Registry, log *slog.Logger) *RecordHandler {
	if registry == nil {
		registry = schema.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	return &RecordHandler{
		store:    st,
		registry: registry,
		logger:   log.With(slog.String("component", "record_handler")),
	}
}

func (h *RecordHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

// Find handles GET /api/{entity}.
func (h *RecordHandler) Find(w http.ResponseWriter, r *http.Request) {
	e, err := h.entityParam(r, "entity")
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	opts, err := windowParams(r, e)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	stmt, err := query.NewSelect(e, opts...)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	recs, err := h.store.Find(r.Context(), stmt)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, recs)
}

// Insert handles POST /api/{entity}. The body is one object or an array of
// objects; the batch is created atomically.
func (h *RecordHandler) Insert(w http.ResponseWriter, r *http.Request) {
	e, err := h.entityParam(r, "entity")
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	var body any
	if err := shared.DecodeJSON(w, r, &body); err != nil {
		respondWithStoreError(w, r, err)
		return
	}

	var objects []map[string]any
	switch v := body.(type) {
	case map[string]any:
		objects = []map[string]any{v}
	case []any:
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				respondWithStoreError(w, r, fmt.Errorf("%w: element %d is not an object",
					schema.ErrConfiguration, i))
				return
			}
			objects = append(objects, obj)
		}
	default:
		respondWithStoreError(w, r, fmt.Errorf("%w: body must be an object or an array of objects",
			schema.ErrConfiguration))
		return
	}

	rows := make([]schema.ChangeSet, len(objects))
	for i, obj := range objects {
		if rows[i], err = schema.NewChangeSet(e, obj); err != nil {
			respondWithStoreError(w, r, fmt.Errorf("row %d: %w", i, err))
			return
		}
	}
	stmt, err := query.NewInsert(e, rows...)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	recs, err := h.store.Insert(r.Context(), stmt)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	h.log(r).Info("records inserted", slog.String("entity", e.Name()), slog.Int("count", len(recs)))
	shared.RespondWithJSON(w, r, http.StatusCreated, recs)
}

// Update handles PATCH /api/{entity}?where=...; all=true updates every record.
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	e, err := h.entityParam(r, "entity")
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	var values map[string]any
	if err := shared.DecodeJSON(w, r, &values); err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	changes, err := schema.NewChangeSet(e, values)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}

	all, where, err := broadOrFiltered(r, e)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	var stmt query.Update
	if all {
		stmt, err = query.NewUpdateAll(changes)
	} else {
		stmt, err = query.NewUpdate(changes, where)
	}
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	recs, err := h.store.Update(r.Context(), stmt)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	h.log(r).Info("records updated", slog.String("entity", e.Name()), slog.Int("count", len(recs)))
	shared.RespondWithJSON(w, r, http.StatusOK, recs)
}

// Delete handles DELETE /api/{entity}?where=...; all=true deletes every record.
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	e, err := h.entityParam(r, "entity")
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	all, where, err := broadOrFiltered(r, e)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	var stmt query.Delete
	if all {
		stmt, err = query.NewDeleteAll(e)
	} else {
		stmt, err = query.NewDelete(where)
	}
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	recs, err := h.store.Delete(r.Context(), stmt)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	h.log(r).Info("records deleted", slog.String("entity", e.Name()), slog.Int("count", len(recs)))
	shared.RespondWithJSON(w, r, http.StatusOK, recs)
}

// Join handles GET /api/{entity}/join/{joined}?on=a=b&fields=...
func (h *RecordHandler) Join(w http.ResponseWriter, r *http.Request) {
	primary, err := h.entityParam(r, "entity")
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	joined, err := h.entityParam(r, "joined")
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	key, err := query.ParseJoinKey(primary, joined, r.URL.Query().Get("on"))
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	var cols []query.Column
	for _, text := range listParam(r, "fields") {
		c, err := query.ParseColumn(primary, joined, text)
		if err != nil {
			respondWithStoreError(w, r, err)
			return
		}
		cols = append(cols, c)
	}
	opts, err := windowParams(r, primary)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	stmt, err := query.NewJoin(primary, joined, key, cols, opts...)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	recs, err := h.store.FindWithJoin(r.Context(), stmt)
	if err != nil {
		respondWithStoreError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, recs)
}

func broadOrFiltered(r *http.Request, e *schema.Entity) (bool, query.Predicate, error) {
	all, err := boolParam(r, "all")
	if err != nil {
		return false, query.Predicate{}, err
	}
	hasWhere := len(r.URL.Query()["where"]) > 0
	if all && hasWhere {
		return false, query.Predicate{}, fmt.Errorf("%w: all=true cannot be combined with where",
			schema.ErrConfiguration)
	}
	if all {
		return true, query.Predicate{}, nil
	}
	where, err := whereParam(r, e)
	return false, where, err
}
