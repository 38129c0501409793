package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with the sync endpoints mounted behind
// bearer authentication.
func NewRouter(syncer Syncer, logger *slog.Logger) chi.Router {
	h := NewHandler(syncer, logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware)

	r.Get("/api/github/pull", h.Pull)
	r.Post("/api/github/push", h.Push)

	return r
}
