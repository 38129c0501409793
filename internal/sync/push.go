package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matt1as/noteeverything/internal/codec"
	"github.com/matt1as/noteeverything/internal/github"
	"github.com/matt1as/noteeverything/internal/models"
)

// pushConcurrency bounds how many remote writes run at once during the
// write phase of a push.
const pushConcurrency = 8

// PartialError carries the per-item failures of a push. The remote is left
// in whatever state the independent writes and deletes produced; callers
// must not assume anything beyond "these items failed".
type PartialError struct {
	Errors []string
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("push finished with %d failed items", len(e.Errors))
}

// Pusher computes and executes the writes and deletes needed to make the
// remote tree match a local note set.
type Pusher struct {
	remote RemoteTree
	codec  *codec.Codec
	logger *slog.Logger
}

// NewPusher creates a pusher over the given remote.
func NewPusher(remote RemoteTree, c *codec.Codec, logger *slog.Logger) *Pusher {
	return &Pusher{remote: remote, codec: c, logger: logger}
}

// writeOp is one planned create-or-update.
type writeOp struct {
	note    models.Note
	path    string
	content []byte
	sha     string
}

// Push makes the remote notes tree mirror the given note set. Writes run
// concurrently but the write phase completes fully before the delete phase
// begins, since deletion decisions depend on the complete path map. Every
// per-item failure is collected rather than aborting the batch; the result
// is a *PartialError when any item failed.
func (p *Pusher) Push(ctx context.Context, noteSet []models.Note, cfg models.RepoConfig) error {
	// Listing failures other than a missing directory abort the push:
	// without the version tokens we cannot write safely.
	current, err := p.remote.ListAll(ctx, cfg, notesRoot)
	if err != nil {
		return fmt.Errorf("listing remote notes: %w", err)
	}

	byPath := make(map[string]github.File, len(current))
	for _, f := range current {
		byPath[f.Path] = f
	}

	byID := make(map[string]models.Note, len(noteSet))
	for _, n := range noteSet {
		byID[n.ID] = n
	}

	var (
		errsMu sync.Mutex
		errs   []string
	)

	fail := func(msg string) {
		errsMu.Lock()
		errs = append(errs, msg)
		errsMu.Unlock()
	}

	// Phase one, serial: encode each note and assign its path. Path
	// building shares one builder so collision suffixes are consistent
	// across the whole batch.
	builder := NewPathBuilder(p.logger)
	pathMap := make(map[string]string, len(noteSet))
	ops := make([]writeOp, 0, len(noteSet))

	for _, note := range noteSet {
		content, err := p.codec.Encode(note)
		if err != nil {
			p.logger.Warn("failed to encode note",
				slog.String("id", note.ID),
				slog.String("error", err.Error()),
			)
			fail(fmt.Sprintf("Failed to push %s: %v", note.Title, err))

			continue
		}

		path := builder.Build(note, byID)
		pathMap[note.ID] = path

		op := writeOp{note: note, path: path, content: content}
		if existing, ok := byPath[path]; ok {
			op.sha = existing.SHA
		}

		ops = append(ops, op)
	}

	// Phase two, concurrent: issue every write. Failures are recorded
	// per note and do not stop the rest of the batch.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pushConcurrency)

	for _, op := range ops {
		op := op
		g.Go(func() error {
			message := "Update note: " + op.note.Title

			if err := p.remote.Write(gctx, cfg, op.path, op.content, message, op.sha); err != nil {
				p.logger.Warn("failed to push note",
					slog.String("id", op.note.ID),
					slog.String("path", op.path),
					slog.String("error", err.Error()),
				)
				fail(fmt.Sprintf("Failed to push %s: %v", op.note.Title, err))

				return nil //nolint:nilerr // per-item failures never abort the batch
			}

			return nil
		})
	}

	// The error group never returns an error directly; waiting is what
	// orders the write phase strictly before the delete phase.
	_ = g.Wait()

	// Phase three: delete remote note files no local note claimed. Only
	// files with the note extension are touched, so unrelated repository
	// content survives a push.
	written := make(map[string]struct{}, len(pathMap))
	for _, path := range pathMap {
		written[path] = struct{}{}
	}

	for _, f := range current {
		if _, keep := written[f.Path]; keep {
			continue
		}

		if !strings.HasSuffix(f.Name, noteExtension) {
			continue
		}

		if err := p.remote.Delete(ctx, cfg, f.Path, "Delete note "+f.Name, f.SHA); err != nil {
			p.logger.Warn("failed to delete remote note",
				slog.String("path", f.Path),
				slog.String("error", err.Error()),
			)
			fail(fmt.Sprintf("Failed to delete %s: %v", f.Name, err))
		}
	}

	if len(errs) > 0 {
		return &PartialError{Errors: errs}
	}

	p.logger.Info("push complete",
		slog.Int("written", len(ops)),
		slog.Int("notes", len(noteSet)),
	)

	return nil
}
