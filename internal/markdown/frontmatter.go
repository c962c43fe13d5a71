package markdown

import (
	"bytes"
	"fmt"
	"time"

	"github.com/adrg/frontmatter"
)

// FrontMatter is the metadata block of a note file.
type FrontMatter struct {
	ID      string         `yaml:"id"`
	Title   string         `yaml:"title"`
	Tags    []string       `yaml:"tags"`
	Created time.Time      `yaml:"created"`
	Updated time.Time      `yaml:"updated"`
	Custom  map[string]any `yaml:",inline"`
}

// Source is a note split into its raw front matter block and markdown body.
// Header keeps the delimiters so the note can be written back unchanged.
type Source struct {
	Meta   FrontMatter
	Header []byte
	Body   []byte
}

// ParseFrontMatter splits source into metadata and body. A note without a
// front matter block yields an empty header and the full source as body.
func ParseFrontMatter(source []byte) (Source, error) {
	var meta FrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return Source{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	if meta.Custom == nil {
		meta.Custom = map[string]any{}
	}

	var header []byte
	if n := len(source) - len(body); n > 0 && bytes.HasSuffix(source, body) {
		header = append([]byte(nil), source[:n]...)
	}
	return Source{Meta: meta, Header: header, Body: body}, nil
}

// Compose joins a header and a new body.
func (s Source) Compose(body []byte) []byte {
	out := make([]byte, 0, len(s.Header)+len(body))
	out = append(out, s.Header...)
	return append(out, body...)
}
