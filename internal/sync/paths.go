package sync

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/matt1as/noteeverything/internal/models"
)

const (
	// notesRoot is the fixed top-level directory holding note files.
	notesRoot = "notes"

	// noteExtension marks remote files the sync core owns. Files without
	// it are never written or deleted.
	noteExtension = ".md"

	// untitledSlug is the fallback for titles that sanitize to nothing.
	untitledSlug = "untitled"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// PathBuilder maps notes to unique remote paths mirroring their ancestor
// chains. One builder must be shared across a whole push batch: its used-path
// set is what guarantees two notes never claim the same file.
type PathBuilder struct {
	used   map[string]struct{}
	logger *slog.Logger
}

// NewPathBuilder creates a builder with an empty used-path set.
func NewPathBuilder(logger *slog.Logger) *PathBuilder {
	return &PathBuilder{
		used:   make(map[string]struct{}),
		logger: logger,
	}
}

// Build returns the remote path for a note, walking the parent chain from
// the note to its root. A visited set breaks parent cycles immediately, and
// a broken chain (parent id pointing nowhere) just ends the walk early, so
// orphaned notes still get a path and are never silently dropped.
func (b *PathBuilder) Build(note models.Note, all map[string]models.Note) string {
	var segments []string

	visited := make(map[string]struct{})
	current := note

	for {
		if _, seen := visited[current.ID]; seen {
			break
		}

		visited[current.ID] = struct{}{}
		segments = append(segments, b.slug(current.Title))

		if current.ParentID == nil {
			break
		}

		parent, ok := all[*current.ParentID]
		if !ok {
			break
		}

		current = parent
	}

	// Reverse into root-to-leaf order.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	base := notesRoot + "/" + strings.Join(segments, "/")
	path := base + noteExtension

	for counter := 1; ; counter++ {
		if _, taken := b.used[path]; !taken {
			break
		}

		path = fmt.Sprintf("%s-%d%s", base, counter, noteExtension)
	}

	b.used[path] = struct{}{}

	return path
}

// slug sanitizes a title into a path segment: NFC-normalized lowercase,
// runs of non-alphanumerics collapsed to a single dash, dashes trimmed,
// "untitled" when nothing survives. Titles that lose more than half their
// characters are logged, since they are likely to collide downstream.
func (b *PathBuilder) slug(title string) string {
	lowered := strings.ToLower(norm.NFC.String(title))
	s := nonAlphanumeric.ReplaceAllString(lowered, "-")
	s = strings.Trim(s, "-")

	if s == "" {
		b.logger.Warn("title sanitized to nothing, using fallback slug",
			slog.String("title", title),
		)

		return untitledSlug
	}

	if utf8.RuneCountInString(s)*2 < utf8.RuneCountInString(title) {
		b.logger.Warn("slug dropped most of the title, collisions likely",
			slog.String("title", title),
			slog.String("slug", s),
		)
	}

	return s
}
