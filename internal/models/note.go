// Package models defines the domain types shared across the sync core.
package models

import "time"

// Note is a single rich-text note. Content is the opaque HTML payload
// produced by the editor. Notes form a forest: ParentID references another
// note's ID or is nil for roots. ID uniqueness is the caller's job (the
// store generates collision-resistant UUIDs); cycles in the parent chain
// are broken wherever the chain is walked, never assumed absent.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ParentID  *string   `json:"parentId"`
}

// RepoConfig identifies the single remote target of a sync.
type RepoConfig struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
}

// ResolveBranch returns the configured branch, defaulting to "main".
func (c RepoConfig) ResolveBranch() string {
	if c.Branch == "" {
		return "main"
	}

	return c.Branch
}

// Valid reports whether the config names a remote at all.
func (c RepoConfig) Valid() bool {
	return c.Owner != "" && c.Repo != ""
}
