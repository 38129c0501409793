// Package notes implements the authoritative local note collection. The
// store owns the in-memory note set and mirrors every mutation into the
// durable cache; nothing else mutates notes except through its operations.
package notes

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matt1as/noteeverything/internal/models"
	"github.com/matt1as/noteeverything/internal/state"
)

// Built-in placeholder note seeded for first-time users. The sync session
// treats a note set consisting of exactly this unedited note as empty for
// pull-safety purposes.
const (
	WelcomeID      = "welcome"
	WelcomeTitle   = "Welcome to NoteEverything"
	WelcomeContent = "<h1>Welcome!</h1><p>Start writing your notes here...</p>"
)

// Store holds the note collection and the active-note pointer.
type Store struct {
	state  *state.State
	logger *slog.Logger

	mu       sync.Mutex
	notes    map[string]models.Note
	activeID string

	// onChange is invoked after every local mutation (create, update,
	// delete). ReplaceAll does not fire it: applying a pull is not a
	// user edit and must not mark the session dirty.
	onChange func()
}

// Load builds a store from the durable cache, seeding the welcome note
// when no notes were ever saved.
func Load(st *state.State, logger *slog.Logger) (*Store, error) {
	saved, err := st.Notes()
	if err != nil {
		return nil, err
	}

	s := &Store{
		state:    st,
		logger:   logger,
		notes:    make(map[string]models.Note, len(saved)),
		activeID: st.ActiveNote(),
	}

	for _, n := range saved {
		s.notes[n.ID] = n
	}

	if len(s.notes) == 0 {
		now := time.Now().UTC()
		welcome := models.Note{
			ID:        WelcomeID,
			Title:     WelcomeTitle,
			Content:   WelcomeContent,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.notes[welcome.ID] = welcome
		s.activeID = welcome.ID
		s.persist(welcome)
		s.persistActive()
	}

	return s, nil
}

// SetOnChange registers the mutation hook. Must be called before the store
// is shared across goroutines.
func (s *Store) SetOnChange(fn func()) {
	s.onChange = fn
}

// Add creates a new empty note under the given parent (nil for a root)
// and makes it active.
func (s *Store) Add(parentID *string) models.Note {
	now := time.Now().UTC()
	n := models.Note{
		ID:        uuid.NewString(),
		Title:     "New Note",
		Content:   "",
		CreatedAt: now,
		UpdatedAt: now,
		ParentID:  parentID,
	}

	s.mu.Lock()
	s.notes[n.ID] = n
	s.activeID = n.ID
	s.persist(n)
	s.persistActive()
	s.mu.Unlock()

	s.notify()

	return n
}

// Update applies mutate to the note with the given id, touches UpdatedAt
// and persists the result. Returns false when the note does not exist.
func (s *Store) Update(id string, mutate func(*models.Note)) (models.Note, bool) {
	s.mu.Lock()

	n, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return models.Note{}, false
	}

	mutate(&n)
	n.ID = id // the mutation must not re-identify the note
	n.UpdatedAt = time.Now().UTC()
	s.notes[id] = n
	s.persist(n)
	s.mu.Unlock()

	s.notify()

	return n, true
}

// Delete removes a note and all of its descendants. The descendant walk
// carries a visited set so a corrupted parent chain containing a cycle
// terminates instead of looping.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()

	if _, ok := s.notes[id]; !ok {
		s.mu.Unlock()
		return false
	}

	doomed := map[string]struct{}{id: {}}
	queue := []string{id}

	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		for childID, child := range s.notes {
			if child.ParentID == nil || *child.ParentID != parent {
				continue
			}

			if _, seen := doomed[childID]; seen {
				continue
			}

			doomed[childID] = struct{}{}
			queue = append(queue, childID)
		}
	}

	for victim := range doomed {
		delete(s.notes, victim)

		if err := s.state.DeleteNote(victim); err != nil {
			s.logger.Warn("failed to delete persisted note",
				slog.String("id", victim),
				slog.String("error", err.Error()),
			)
		}
	}

	if _, gone := doomed[s.activeID]; gone {
		s.activeID = ""
		s.persistActive()
	}

	s.mu.Unlock()

	s.notify()

	return true
}

// ReplaceAll overwrites the whole note set, as a pull does. The active
// pointer is cleared when it no longer resolves. Does not fire onChange.
func (s *Store) ReplaceAll(notes []models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes = make(map[string]models.Note, len(notes))
	for _, n := range notes {
		s.notes[n.ID] = n
	}

	if _, ok := s.notes[s.activeID]; !ok {
		s.activeID = ""
		s.persistActive()
	}

	if err := s.state.ReplaceNotes(notes); err != nil {
		s.logger.Warn("failed to persist replaced note set", slog.String("error", err.Error()))
	}
}

// All returns the note set in a stable order (creation time, then id).
func (s *Store) All() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}

		return out[i].ID < out[j].ID
	})

	return out
}

// Get returns a single note by id.
func (s *Store) Get(id string) (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]

	return n, ok
}

// Len returns the number of notes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.notes)
}

// PlaceholderOnly reports whether the set is exactly the unedited built-in
// welcome note.
func (s *Store) PlaceholderOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.notes) != 1 {
		return false
	}

	n, ok := s.notes[WelcomeID]

	return ok && n.Title == WelcomeTitle && n.Content == WelcomeContent
}

// Active returns the active-note id, or empty string.
func (s *Store) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeID
}

// SetActive updates the active-note pointer. Pointing at a missing note
// is allowed; the pointer is advisory UI state, not an invariant.
func (s *Store) SetActive(id string) {
	s.mu.Lock()
	s.activeID = id
	s.persistActive()
	s.mu.Unlock()
}

func (s *Store) persist(n models.Note) {
	if err := s.state.PutNote(n); err != nil {
		s.logger.Warn("failed to persist note",
			slog.String("id", n.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) persistActive() {
	if err := s.state.SetActiveNote(s.activeID); err != nil {
		s.logger.Warn("failed to persist active note", slog.String("error", err.Error()))
	}
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
