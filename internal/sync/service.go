package sync

import (
	"context"
	"log/slog"

	"github.com/matt1as/noteeverything/internal/codec"
	"github.com/matt1as/noteeverything/internal/github"
	"github.com/matt1as/noteeverything/internal/models"
)

// Service runs pulls and pushes on behalf of a caller-supplied credential,
// building a fresh remote client per operation. The HTTP endpoints use it
// so each request acts with the bearer token it presented, never with the
// daemon's own credential.
type Service struct {
	codec     *codec.Codec
	logger    *slog.Logger
	newRemote func(token string) RemoteTree
}

// NewService creates a service backed by the real GitHub adapter.
func NewService(c *codec.Codec, logger *slog.Logger) *Service {
	return &Service{
		codec:  c,
		logger: logger,
		newRemote: func(token string) RemoteTree {
			return github.NewClient(token, nil)
		},
	}
}

// NewServiceWithRemote creates a service with a custom remote constructor.
// Used by tests to substitute a fake tree.
func NewServiceWithRemote(c *codec.Codec, logger *slog.Logger, newRemote func(token string) RemoteTree) *Service {
	return &Service{codec: c, logger: logger, newRemote: newRemote}
}

// Pull fetches the remote note set with the given credential.
func (s *Service) Pull(ctx context.Context, token string, cfg models.RepoConfig) ([]models.Note, error) {
	return NewPuller(s.newRemote(token), s.codec, s.logger).Pull(ctx, cfg)
}

// Push mirrors the remote tree from the given note set with the given
// credential.
func (s *Service) Push(ctx context.Context, token string, noteSet []models.Note, cfg models.RepoConfig) error {
	return NewPusher(s.newRemote(token), s.codec, s.logger).Push(ctx, noteSet, cfg)
}
