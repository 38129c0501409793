package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/matt1as/noteeverything/internal/models"
	"github.com/matt1as/noteeverything/internal/notes"
	"github.com/matt1as/noteeverything/internal/state"
)

// Status is the externally visible sync state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSaved   Status = "saved"
	StatusError   Status = "error"
)

const (
	// defaultDebounceWindow is the quiet period after the last mutation
	// before an automatic push fires.
	defaultDebounceWindow = 2 * time.Second

	// defaultPullInterval is the period of the background pull timer.
	defaultPullInterval = time.Minute

	// defaultCooldown is how long the saved/error status is shown before
	// resetting to idle. A display affordance, not a functional state.
	defaultCooldown = 3 * time.Second
)

// NotePusher mirrors the remote tree from a note set.
type NotePusher interface {
	Push(ctx context.Context, notes []models.Note, cfg models.RepoConfig) error
}

// NotePuller fetches the remote note set.
type NotePuller interface {
	Pull(ctx context.Context, cfg models.RepoConfig) ([]models.Note, error)
}

// SessionConfig holds the dependencies and tunables of a sync session.
// Zero durations take the package defaults.
type SessionConfig struct {
	Store  *notes.Store
	State  *state.State
	Pusher NotePusher
	Puller NotePuller
	Repo   models.RepoConfig

	DebounceWindow time.Duration
	PullInterval   time.Duration
	Cooldown       time.Duration
}

// Session is the controller that decides when to pull and when to push.
// It owns the debounce timer, the dirty flag, the last-synced fingerprint
// and the in-flight guard; no other component touches them.
//
// Concurrency model: mutations arrive from the store's OnChange hook and
// timers fire on their own goroutines, but every network-touching operation
// is serialized behind opMu so at most one push or pull is in flight. The
// fingerprint skip and the dirty flag make overlapping triggers cheap
// no-ops rather than requiring a queue.
type Session struct {
	store  *notes.Store
	state  *state.State
	pusher NotePusher
	puller NotePuller
	repo   models.RepoConfig
	logger *slog.Logger

	debounceWindow time.Duration
	pullInterval   time.Duration
	cooldown       time.Duration

	// opMu serializes pushes and pulls.
	opMu sync.Mutex

	// mu guards everything below.
	mu         sync.Mutex
	status     Status
	errMsg     string
	dirty      bool
	lastSynced string
	debounce   *time.Timer
	reset      *time.Timer
	closed     bool
	runCtx     context.Context
}

// NewSession creates a session and hooks it into the store's mutation
// callback. The last-synced fingerprint is restored from the durable cache
// so a restart does not re-push an unchanged note set.
func NewSession(cfg SessionConfig, logger *slog.Logger) *Session {
	s := &Session{
		store:          cfg.Store,
		state:          cfg.State,
		pusher:         cfg.Pusher,
		puller:         cfg.Puller,
		repo:           cfg.Repo,
		logger:         logger,
		debounceWindow: cfg.DebounceWindow,
		pullInterval:   cfg.PullInterval,
		cooldown:       cfg.Cooldown,
		status:         StatusIdle,
		lastSynced:     cfg.State.Fingerprint(),
	}

	if s.debounceWindow <= 0 {
		s.debounceWindow = defaultDebounceWindow
	}

	if s.pullInterval <= 0 {
		s.pullInterval = defaultPullInterval
	}

	if s.cooldown <= 0 {
		s.cooldown = defaultCooldown
	}

	cfg.Store.SetOnChange(s.NoteChanged)

	return s
}

// Run performs the initial pull and then drives the periodic pull timer
// until the context is cancelled. Pull failures are logged, never fatal:
// background pulling is best-effort reconciliation.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	s.autoPull(ctx)

	ticker := time.NewTicker(s.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.autoPull(ctx)
		}
	}
}

// NoteChanged marks the session dirty and resets the debounce timer. Called
// by the store on every local mutation; a burst of keystroke-level edits
// collapses into a single push once the window passes quietly.
func (s *Session) NoteChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.dirty = true

	if s.debounce != nil {
		s.debounce.Stop()
	}

	s.debounce = time.AfterFunc(s.debounceWindow, func() {
		s.autoPush(s.opCtx())
	})
}

// Push runs a push immediately, bypassing the debounce timer. The
// fingerprint skip still applies: an unchanged note set costs no network
// call. Used for explicit user-triggered syncs.
func (s *Session) Push(ctx context.Context) error {
	s.mu.Lock()
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.mu.Unlock()

	return s.push(ctx)
}

// Pull unconditionally replaces the local note set with the remote one,
// bypassing every auto-pull safety gate. A destructive, user-acknowledged
// operation.
func (s *Session) Pull(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.isClosed() {
		return nil
	}

	remote, err := s.puller.Pull(ctx, s.repo)
	if err != nil {
		return err
	}

	if s.isClosed() {
		return nil
	}

	s.apply(remote)
	s.logger.Info("manual pull applied", slog.Int("notes", len(remote)))

	return nil
}

// Status returns the current state and, in the error state, its message.
func (s *Session) Status() (Status, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status, s.errMsg
}

// Dirty reports whether a local mutation happened since the last push that
// actually wrote.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dirty
}

// Close stops the timers and marks the session dead. In-flight network
// calls may complete, but their results are no longer applied.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}

	if s.reset != nil {
		s.reset.Stop()
		s.reset = nil
	}
}

// autoPush is the debounce-fired push. Failures land in the error status
// rather than propagating; the next debounce cycle gets a fresh chance.
func (s *Session) autoPush(ctx context.Context) {
	if err := s.push(ctx); err != nil {
		s.logger.Warn("auto push failed", slog.String("error", err.Error()))
	}
}

// push runs one serialized push with the fingerprint skip.
func (s *Session) push(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.isClosed() {
		return nil
	}

	snapshot := s.store.All()
	fp := Fingerprint(snapshot)

	s.mu.Lock()
	last := s.lastSynced
	s.mu.Unlock()

	if fp == last {
		s.logger.Debug("push skipped, note set unchanged since last sync")
		return nil
	}

	s.setStatus(StatusSyncing, "")

	err := s.pusher.Push(ctx, snapshot, s.repo)

	if s.isClosed() {
		return err
	}

	if err != nil {
		s.setStatus(StatusError, err.Error())
		return err
	}

	s.mu.Lock()
	s.lastSynced = fp
	// Edits that arrived while the push was in flight fingerprint
	// differently from the pushed snapshot; only a truly clean store
	// clears the dirty flag.
	if Fingerprint(s.store.All()) == fp {
		s.dirty = false
	}
	s.mu.Unlock()

	if err := s.state.SetFingerprint(fp); err != nil {
		s.logger.Warn("failed to persist fingerprint", slog.String("error", err.Error()))
	}

	s.setStatus(StatusSaved, "")
	s.logger.Info("push synced", slog.Int("notes", len(snapshot)))

	return nil
}

// autoPull runs one serialized background pull and applies it only when
// doing so cannot destroy unsynced local edits.
func (s *Session) autoPull(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.isClosed() {
		return
	}

	remote, err := s.puller.Pull(ctx, s.repo)
	if err != nil {
		// Background pulls are best-effort; surface nothing.
		s.logger.Warn("background pull failed", slog.String("error", err.Error()))
		return
	}

	if s.isClosed() {
		return
	}

	local := s.store.All()
	fp := Fingerprint(local)

	s.mu.Lock()
	dirty := s.dirty
	last := s.lastSynced
	s.mu.Unlock()

	cleanMirror := !dirty && fp == last
	empty := len(local) == 0
	placeholder := s.store.PlaceholderOnly()

	if !cleanMirror && !empty && !placeholder {
		// Unknown divergence: prefer staleness over silent data loss.
		// No error is surfaced; the user can resync manually.
		s.logger.Debug("pull skipped, local state has unsynced changes")
		return
	}

	if len(remote) == 0 && !empty && !placeholder {
		// A misconfigured or emptied remote must not wipe real notes.
		s.logger.Warn("pull rejected, remote returned no notes while local has content")
		return
	}

	s.apply(remote)
	s.logger.Info("background pull applied", slog.Int("notes", len(remote)))
}

// apply replaces the local note set and records the new baseline: after an
// applied pull, local state is a known mirror of the remote.
func (s *Session) apply(remote []models.Note) {
	s.store.ReplaceAll(remote)

	fp := Fingerprint(s.store.All())

	s.mu.Lock()
	s.lastSynced = fp
	s.dirty = false
	s.mu.Unlock()

	if err := s.state.SetFingerprint(fp); err != nil {
		s.logger.Warn("failed to persist fingerprint", slog.String("error", err.Error()))
	}
}

// setStatus updates the visible state and schedules the cool-down reset to
// idle for the terminal saved/error states.
func (s *Session) setStatus(status Status, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.status = status
	s.errMsg = msg

	if s.reset != nil {
		s.reset.Stop()
		s.reset = nil
	}

	if status == StatusSaved || status == StatusError {
		s.reset = time.AfterFunc(s.cooldown, func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			if s.closed {
				return
			}

			if s.status == StatusSaved || s.status == StatusError {
				s.status = StatusIdle
				s.errMsg = ""
			}
		})
	}
}

// opCtx returns the context timers should use: the Run context when the
// session is running, Background otherwise.
func (s *Session) opCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runCtx != nil {
		return s.runCtx
	}

	return context.Background()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
