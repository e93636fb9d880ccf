package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/querykit/internal/api/middleware"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// Registry resolves {entity}; nil means schema.Default().
	Registry *schema.Registry
	// JWTSecret enables bearer authentication on /api when set.
	JWTSecret string
	Logger    *slog.Logger
}

// NewRouter registers the record routes and /health.
func NewRouter(st store.Store, cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(log))

	records := NewRecordHandler(st, cfg.Registry, log)

	r.Route("/api", func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(middleware.NewAuthMiddleware(cfg.JWTSecret).Authenticate)
		}
		r.Get("/{entity}", records.Find)
		r.Post("/{entity}", records.Insert)
		r.Patch("/{entity}", records.Update)
		r.Delete("/{entity}", records.Delete)
		r.Get("/{entity}/join/{joined}", records.Join)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
