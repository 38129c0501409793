package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/matt1as/noteeverything/internal/models"
	"github.com/matt1as/noteeverything/internal/sync"
)

// Syncer performs remote operations with the caller's credential.
// *sync.Service satisfies it.
type Syncer interface {
	Pull(ctx context.Context, token string, cfg models.RepoConfig) ([]models.Note, error)
	Push(ctx context.Context, token string, notes []models.Note, cfg models.RepoConfig) error
}

// Handler holds the API route handlers.
type Handler struct {
	syncer Syncer
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(syncer Syncer, logger *slog.Logger) *Handler {
	return &Handler{syncer: syncer, logger: logger}
}

// Pull handles GET /api/github/pull?owner=&repo=&branch=. An empty or
// missing notes directory is a successful empty pull, not an error.
func (h *Handler) Pull(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg := models.RepoConfig{
		Owner:  q.Get("owner"),
		Repo:   q.Get("repo"),
		Branch: q.Get("branch"),
	}

	if !cfg.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("missing owner or repo"))
		return
	}

	notes, err := h.syncer.Pull(r.Context(), requestToken(r), cfg)
	if err != nil {
		h.logger.Error("pull failed",
			slog.String("owner", cfg.Owner),
			slog.String("repo", cfg.Repo),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))

		return
	}

	if notes == nil {
		notes = []models.Note{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

// pushRequest is the POST /api/github/push body.
type pushRequest struct {
	Notes  []models.Note     `json:"notes"`
	Config models.RepoConfig `json:"config"`
}

// pushResponse reports overall success plus per-item errors on failure.
type pushResponse struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// Push handles POST /api/github/push. Per-item failures produce a 500 with
// the full error list; the remote may be partially updated, which is
// reported rather than hidden.
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<20)

	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	if !req.Config.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid config"))
		return
	}

	if err := h.syncer.Push(r.Context(), requestToken(r), req.Notes, req.Config); err != nil {
		var partial *sync.PartialError
		if errors.As(err, &partial) {
			h.logger.Error("push finished with failures",
				slog.String("repo", req.Config.Repo),
				slog.Int("failed", len(partial.Errors)),
			)
			writeJSON(w, http.StatusInternalServerError, pushResponse{Success: false, Errors: partial.Errors})

			return
		}

		h.logger.Error("push failed",
			slog.String("repo", req.Config.Repo),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to access repo: "+err.Error()))

		return
	}

	writeJSON(w, http.StatusOK, pushResponse{Success: true})
}
