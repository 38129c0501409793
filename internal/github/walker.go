package github

import (
	"context"
	"errors"

	apperrors "github.com/matt1as/noteeverything/internal/errors"
	"github.com/matt1as/noteeverything/internal/models"
)

// ListAll recursively lists every file under root, flattening subdirectory
// contents into one slice. A missing root yields an empty list rather than
// an error, covering the first-sync case where the notes directory does not
// exist yet. Any other listing failure propagates.
func (c *Client) ListAll(ctx context.Context, cfg models.RepoConfig, root string) ([]File, error) {
	entries, err := c.List(ctx, cfg, root)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	var files []File

	for _, e := range entries {
		switch e.Type {
		case "file":
			files = append(files, File{Path: e.Path, Name: e.Name, SHA: e.SHA})
		case "dir":
			sub, err := c.ListAll(ctx, cfg, e.Path)
			if err != nil {
				return nil, err
			}

			files = append(files, sub...)
		}
	}

	return files, nil
}
