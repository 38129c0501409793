package config

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/matt1as/noteeverything/internal/models"
)

// Config holds all environment-based configuration for noteeverything.
type Config struct {
	// GitHub credential used by the background sync session. The HTTP
	// endpoints use the caller's bearer token instead, so this may be
	// empty when only the API is served.
	GitHubToken string `env:"GITHUB_TOKEN"`

	// Remote repository target for the background sync session.
	GitHubOwner  string `env:"GITHUB_OWNER"`
	GitHubRepo   string `env:"GITHUB_REPO"`
	GitHubBranch string `env:"GITHUB_BRANCH" envDefault:"main"`

	// HTTP API listen address. Endpoint callers authenticate with the
	// bearer token they present, which doubles as their GitHub
	// credential; the API stores none itself.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// StatePath is the bbolt database holding notes, config and sync
	// metadata. Defaults to ~/.noteeverything/state.db.
	StatePath string `env:"STATE_PATH"`

	// DebounceWindow is the quiet period after the last local mutation
	// before an automatic push fires. Long enough that keystroke bursts
	// collapse into one batch, short enough to bound loss on crash.
	DebounceWindow time.Duration `env:"SYNC_DEBOUNCE" envDefault:"2s"`

	// PullInterval is the period of the background pull timer.
	PullInterval time.Duration `env:"SYNC_PULL_INTERVAL" envDefault:"60s"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the GitHub token to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DebounceWindow <= 0 {
		return fmt.Errorf("SYNC_DEBOUNCE must be positive")
	}

	if c.PullInterval <= 0 {
		return fmt.Errorf("SYNC_PULL_INTERVAL must be positive")
	}

	// The background session needs the full remote target. Owner and repo
	// must come together; a token alone is not a target.
	if (c.GitHubOwner == "") != (c.GitHubRepo == "") {
		return fmt.Errorf("GITHUB_OWNER and GITHUB_REPO must be set together")
	}

	if c.SyncEnabled() && c.GitHubToken == "" {
		return fmt.Errorf("GITHUB_TOKEN is required when GITHUB_OWNER/GITHUB_REPO are set")
	}

	return nil
}

// SyncEnabled reports whether the background sync session should run.
func (c *Config) SyncEnabled() bool {
	return c.GitHubOwner != "" && c.GitHubRepo != ""
}

// RepoConfig returns the remote target for the background session.
func (c *Config) RepoConfig() models.RepoConfig {
	return models.RepoConfig{
		Owner:  c.GitHubOwner,
		Repo:   c.GitHubRepo,
		Branch: c.GitHubBranch,
	}
}

// DefaultStatePath returns ~/.noteeverything/state.db, used when
// STATE_PATH is not set.
func DefaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return home + "/.noteeverything/state.db", nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
