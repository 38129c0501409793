// Package state persists the durable local cache: the note collection, the
// remote repository config, the active-note pointer and the last-synced
// fingerprint. Each key is independently readable and writable and survives
// process restart. There is one logical actor, so writes are last-write-wins
// with no additional locking beyond bbolt's own transactions.
package state

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/matt1as/noteeverything/internal/models"
)

const (
	// stateDirPerm is the permission mode for the state directory.
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second
)

var (
	appBucket   = []byte("app")
	notesBucket = []byte("notes")

	configKey      = []byte("config")
	activeNoteKey  = []byte("active_note")
	fingerprintKey = []byte("fingerprint")
)

// State wraps a bbolt database for all persistent application state.
type State struct {
	db *bolt.DB
}

// Load opens a state database at the given path, creating it and its
// parent directory if they do not exist.
func Load(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(appBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucketIfNotExists(notesBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &State{db: db}, nil
}

// Close closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// Notes returns every persisted note. A missing bucket entry simply yields
// an empty slice; a corrupt entry fails the whole read so the caller can
// decide whether to reseed.
func (s *State) Notes() ([]models.Note, error) {
	var notes []models.Note

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(notesBucket).ForEach(func(k, v []byte) error {
			var n models.Note
			if err := json.Unmarshal(v, &n); err != nil {
				return fmt.Errorf("decoding note %s: %w", k, err)
			}

			notes = append(notes, n)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return notes, nil
}

// PutNote persists a single note keyed by its id.
func (s *State) PutNote(n models.Note) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}

		return tx.Bucket(notesBucket).Put([]byte(n.ID), data)
	})
}

// DeleteNote removes a single note. Deleting a missing id is a no-op.
func (s *State) DeleteNote(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(notesBucket).Delete([]byte(id))
	})
}

// ReplaceNotes atomically replaces the whole persisted collection, used
// when a pull overwrites the local note set.
func (s *State) ReplaceNotes(notes []models.Note) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(notesBucket); err != nil {
			return err
		}

		b, err := tx.CreateBucket(notesBucket)
		if err != nil {
			return err
		}

		for _, n := range notes {
			data, err := json.Marshal(n)
			if err != nil {
				return err
			}

			if err := b.Put([]byte(n.ID), data); err != nil {
				return err
			}
		}

		return nil
	})
}

// Config returns the persisted remote target, or nil if none was saved yet.
func (s *State) Config() (*models.RepoConfig, error) {
	var cfg *models.RepoConfig

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appBucket).Get(configKey)
		if v == nil {
			return nil
		}

		cfg = &models.RepoConfig{}

		return json.Unmarshal(v, cfg)
	})
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// SetConfig persists the remote target.
func (s *State) SetConfig(cfg models.RepoConfig) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(cfg)
		if err != nil {
			return err
		}

		return tx.Bucket(appBucket).Put(configKey, data)
	})
}

// ResolveRepo reconciles the environment-provided remote target with the
// persisted one. A valid env target wins and is saved for later runs, so a
// daemon once pointed at a repository keeps its target when the variables
// are absent on the next start.
func (s *State) ResolveRepo(env models.RepoConfig) (models.RepoConfig, error) {
	if env.Valid() {
		if err := s.SetConfig(env); err != nil {
			return env, fmt.Errorf("persisting repo target: %w", err)
		}

		return env, nil
	}

	saved, err := s.Config()
	if err != nil {
		return env, fmt.Errorf("reading saved repo target: %w", err)
	}

	if saved == nil {
		return env, nil
	}

	return *saved, nil
}

// ActiveNote returns the persisted active-note id, or empty string.
func (s *State) ActiveNote() string {
	var id string

	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(appBucket).Get(activeNoteKey); v != nil {
			id = string(v)
		}

		return nil
	})

	return id
}

// SetActiveNote persists the active-note id. An empty id clears it.
func (s *State) SetActiveNote(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if id == "" {
			return tx.Bucket(appBucket).Delete(activeNoteKey)
		}

		return tx.Bucket(appBucket).Put(activeNoteKey, []byte(id))
	})
}

// Fingerprint returns the fingerprint of the last note set known to be
// mirrored on the remote, or empty string if nothing was synced yet.
func (s *State) Fingerprint() string {
	var fp string

	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(appBucket).Get(fingerprintKey); v != nil {
			fp = string(v)
		}

		return nil
	})

	return fp
}

// SetFingerprint persists the last-synced fingerprint.
func (s *State) SetFingerprint(fp string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Put(fingerprintKey, []byte(fp))
	})
}
