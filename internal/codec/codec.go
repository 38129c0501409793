// Package codec converts between the in-memory note shape and the remote
// file format: YAML front matter carrying identity and hierarchy, followed
// by a markdown body. The rich-text payload is HTML, so encoding converts
// HTML to markdown and decoding converts it back. The round trip is lossy
// only to the extent the HTML/markdown conversion is inherently lossy.
package codec

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"github.com/matt1as/noteeverything/internal/models"
)

const delimiter = "---"

// frontMatter is the serialized identity block at the top of a note file.
// Key names match the format other clients of the same repository write.
type frontMatter struct {
	ID        string  `yaml:"id"`
	Title     string  `yaml:"title"`
	CreatedAt string  `yaml:"createdAt"`
	UpdatedAt string  `yaml:"updatedAt"`
	ParentID  *string `yaml:"parentId"`
}

// Codec encodes notes into note files and back.
type Codec struct {
	converter *md.Converter
}

// New creates a codec. The underlying HTML-to-markdown converter is safe
// for concurrent use, so one codec serves all pushes and pulls.
func New() *Codec {
	return &Codec{converter: md.NewConverter("", true, nil)}
}

// Encode renders a note as front matter plus markdown body.
func (c *Codec) Encode(note models.Note) ([]byte, error) {
	body, err := c.converter.ConvertString(note.Content)
	if err != nil {
		return nil, fmt.Errorf("converting content of %s to markdown: %w", note.ID, err)
	}

	fm := frontMatter{
		ID:        note.ID,
		Title:     note.Title,
		CreatedAt: note.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: note.UpdatedAt.UTC().Format(time.RFC3339),
		ParentID:  note.ParentID,
	}

	meta, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshalling front matter of %s: %w", note.ID, err)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	buf.Write(meta)
	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(body)

	if !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// Decode parses a note file back into a note. Missing front matter fields
// fall back to values derived from the filename or the current time, so a
// hand-written file in the repository still becomes a usable note.
func (c *Codec) Decode(data []byte, filename string) (models.Note, error) {
	meta, body := splitFrontMatter(data)

	var fm frontMatter
	if len(meta) > 0 {
		if err := yaml.Unmarshal(meta, &fm); err != nil {
			return models.Note{}, fmt.Errorf("parsing front matter of %s: %w", filename, err)
		}
	}

	var html bytes.Buffer
	if err := goldmark.Convert(body, &html); err != nil {
		return models.Note{}, fmt.Errorf("rendering body of %s: %w", filename, err)
	}

	now := time.Now().UTC()

	note := models.Note{
		ID:        fm.ID,
		Title:     fm.Title,
		Content:   html.String(),
		CreatedAt: parseTime(fm.CreatedAt, now),
		UpdatedAt: parseTime(fm.UpdatedAt, now),
		ParentID:  fm.ParentID,
	}

	if note.ID == "" {
		note.ID = strings.TrimSuffix(filename, ".md")
	}

	if note.Title == "" {
		note.Title = filename
	}

	return note, nil
}

// splitFrontMatter separates the YAML block from the body. Returns a nil
// meta slice when the file has no front matter; the whole input is then
// the body.
func splitFrontMatter(data []byte) (meta, body []byte) {
	if !bytes.HasPrefix(data, []byte(delimiter)) {
		return nil, data
	}

	// Skip the rest of the opening line (could be "---\n" or "---\r\n").
	rest := data[len(delimiter):]

	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 {
		return nil, data
	}

	rest = rest[idx+1:]

	end := bytes.Index(rest, []byte("\n"+delimiter))
	if end < 0 {
		return nil, data
	}

	meta = rest[:end]

	body = rest[end+1+len(delimiter):]
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = nil
	}

	return meta, bytes.TrimLeft(body, "\n")
}

// parseTime parses an RFC3339 timestamp, falling back to def when the
// value is empty or malformed.
func parseTime(value string, def time.Time) time.Time {
	if value == "" {
		return def
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return def
	}

	return t.UTC()
}
