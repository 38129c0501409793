package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/matt1as/noteeverything/internal/models"
)

// Fingerprint returns a stable content hash of a note set: the SHA-256 hex
// digest of its id-sorted JSON serialization. Two sets with equal notes
// fingerprint identically regardless of input order, which is what lets the
// session skip pushes after an undo restored the previously synced state.
func Fingerprint(notes []models.Note) string {
	sorted := make([]models.Note, len(notes))
	copy(sorted, notes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	data, err := json.Marshal(sorted)
	if err != nil {
		// models.Note contains only marshallable fields; treat failure
		// as a never-matching fingerprint rather than panicking.
		return ""
	}

	h := sha256.Sum256(data)

	return hex.EncodeToString(h[:])
}
