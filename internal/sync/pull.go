package sync

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matt1as/noteeverything/internal/codec"
	"github.com/matt1as/noteeverything/internal/models"
)

// pullConcurrency bounds how many remote reads run at once during a pull.
const pullConcurrency = 8

// Puller fetches and decodes every remote note file into the in-memory
// note shape.
type Puller struct {
	remote RemoteTree
	codec  *codec.Codec
	logger *slog.Logger
}

// NewPuller creates a puller over the given remote.
func NewPuller(remote RemoteTree, c *codec.Codec, logger *slog.Logger) *Puller {
	return &Puller{remote: remote, codec: c, logger: logger}
}

// Pull lists the notes directory recursively and decodes each note file.
// A missing directory yields an empty set (first-sync case). A file that
// fails to fetch or decode is logged and excluded; one corrupt file must
// not fail the whole pull. Any other top-level failure propagates.
func (p *Puller) Pull(ctx context.Context, cfg models.RepoConfig) ([]models.Note, error) {
	files, err := p.remote.ListAll(ctx, cfg, notesRoot)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		notes []models.Note
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pullConcurrency)

	for _, f := range files {
		if !strings.HasSuffix(f.Name, noteExtension) {
			continue
		}

		f := f
		g.Go(func() error {
			content, _, err := p.remote.Read(gctx, cfg, f.Path)
			if err != nil {
				p.logger.Warn("failed to fetch note file, skipping",
					slog.String("path", f.Path),
					slog.String("error", err.Error()),
				)

				return nil //nolint:nilerr // per-file failures never abort the pull
			}

			note, err := p.codec.Decode(content, f.Name)
			if err != nil {
				p.logger.Warn("failed to decode note file, skipping",
					slog.String("path", f.Path),
					slog.String("error", err.Error()),
				)

				return nil //nolint:nilerr // per-file failures never abort the pull
			}

			mu.Lock()
			notes = append(notes, note)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.logger.Debug("pull complete",
		slog.Int("files", len(files)),
		slog.Int("notes", len(notes)),
	)

	return notes, nil
}
