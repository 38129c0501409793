package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matt1as/noteeverything/internal/api"
	"github.com/matt1as/noteeverything/internal/codec"
	"github.com/matt1as/noteeverything/internal/config"
	"github.com/matt1as/noteeverything/internal/github"
	"github.com/matt1as/noteeverything/internal/logging"
	"github.com/matt1as/noteeverything/internal/notes"
	"github.com/matt1as/noteeverything/internal/state"
	"github.com/matt1as/noteeverything/internal/sync"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.IsProduction())
	logger.Info("noteeverything starting",
		slog.String("version", Version),
		slog.String("listen", cfg.ListenAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	statePath := cfg.StatePath
	if statePath == "" {
		statePath, err = config.DefaultStatePath()
		if err != nil {
			return err
		}
	}

	appState, err := state.Load(statePath)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer appState.Close()

	store, err := notes.Load(appState, logger)
	if err != nil {
		return fmt.Errorf("loading notes: %w", err)
	}

	noteCodec := codec.New()

	// The env-provided target is saved so the daemon keeps syncing against
	// the same repository when the variables are absent on a later start.
	repo, err := appState.ResolveRepo(cfg.RepoConfig())
	if err != nil {
		logger.Warn("failed to reconcile repo target", slog.String("error", err.Error()))
	}

	g, gctx := errgroup.WithContext(ctx)

	if repo.Valid() && cfg.GitHubToken != "" {
		remote := github.NewClient(cfg.GitHubToken, nil)
		session := sync.NewSession(sync.SessionConfig{
			Store:          store,
			State:          appState,
			Pusher:         sync.NewPusher(remote, noteCodec, logger),
			Puller:         sync.NewPuller(remote, noteCodec, logger),
			Repo:           repo,
			DebounceWindow: cfg.DebounceWindow,
			PullInterval:   cfg.PullInterval,
		}, logger)
		defer session.Close()

		logger.Info("sync session starting",
			slog.String("owner", repo.Owner),
			slog.String("repo", repo.Repo),
			slog.String("branch", repo.ResolveBranch()),
			slog.Duration("debounce", cfg.DebounceWindow),
			slog.Duration("pull_interval", cfg.PullInterval),
		)

		g.Go(func() error {
			err := session.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		})
	}

	g.Go(func() error {
		return serveAPI(gctx, cfg, noteCodec, logger)
	})

	return g.Wait()
}

// serveAPI runs the HTTP endpoints until the context is cancelled.
func serveAPI(ctx context.Context, cfg *config.Config, noteCodec *codec.Codec, logger *slog.Logger) error {
	apiLogger := logger.With(slog.String("service", "api"))
	service := sync.NewService(noteCodec, apiLogger)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewRouter(service, apiLogger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Shutdown when the context is cancelled.
	go func() {
		<-ctx.Done()
		apiLogger.Info("shutting down API server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		server.Shutdown(shutdownCtx)
	}()

	apiLogger.Info("API server listening", slog.String("addr", cfg.ListenAddr))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server error: %w", err)
	}

	return nil
}
