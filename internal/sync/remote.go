package sync

import (
	"context"

	"github.com/matt1as/noteeverything/internal/github"
	"github.com/matt1as/noteeverything/internal/models"
)

// RemoteTree is the file-tree service the sync core reconciles against.
// *github.Client satisfies it; tests substitute an in-memory fake.
type RemoteTree interface {
	// ListAll recursively lists every file under root, returning an
	// empty slice when root does not exist.
	ListAll(ctx context.Context, cfg models.RepoConfig, root string) ([]github.File, error)

	// Read fetches one file's content and version token.
	Read(ctx context.Context, cfg models.RepoConfig, path string) ([]byte, string, error)

	// Write creates (empty sha) or conditionally updates (non-empty sha)
	// a file. A stale sha fails rather than silently overwriting.
	Write(ctx context.Context, cfg models.RepoConfig, path string, content []byte, message, sha string) error

	// Delete removes a file using its version token.
	Delete(ctx context.Context, cfg models.RepoConfig, path, message, sha string) error
}
