// Package ingest bulk-imports remembered facts from markdown documents.
//
// Each level-2 heading starts a section; the heading text becomes the
// memory key and the section body becomes the value.
package ingest

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/kurtgav/tinker/internal/memory"
)

// Section is one importable key/value pair from a document.
type Section struct {
	Key  string
	Body string
}

// Ingester writes parsed sections into the memory store.
type Ingester struct {
	store *memory.Store
}

// New creates an ingester backed by the given store.
func New(store *memory.Store) *Ingester {
	return &Ingester{store: store}
}

// File imports every section of a markdown file for the given user.
// It returns the number of sections stored.
func (i *Ingester) File(userID, path string) (int, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}
	return i.Import(userID, src)
}

// Import stores every section of a markdown document for the given user.
func (i *Ingester) Import(userID string, src []byte) (int, error) {
	count := 0
	for _, sec := range ParseSections(src) {
		if err := i.store.Set(userID, sec.Key, sec.Body); err != nil {
			return count, fmt.Errorf("store section %q: %w", sec.Key, err)
		}
		count++
	}
	return count, nil
}

// ParseSections splits a markdown document into level-2 heading
// sections. Content before the first level-2 heading is ignored, and
// deeper headings stay part of the enclosing section's body.
func ParseSections(src []byte) []Section {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var sections []Section
	var key string
	var body []string

	flush := func() {
		joined := strings.TrimSpace(strings.Join(body, "\n\n"))
		if key != "" && joined != "" {
			sections = append(sections, Section{Key: key, Body: joined})
		}
		body = body[:0]
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			if h.Level == 1 {
				flush()
				key = ""
				continue
			}
			if h.Level == 2 {
				flush()
				key = slugify(string(rawText(h, src)))
				continue
			}
		}
		if key == "" {
			continue
		}
		if part := strings.TrimSpace(string(rawText(n, src))); part != "" {
			body = append(body, part)
		}
	}
	flush()

	return sections
}

// rawText reconstructs the source text covered by a node, descending
// into containers like lists that have no lines of their own.
func rawText(n ast.Node, src []byte) []byte {
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		var b strings.Builder
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		return []byte(strings.TrimRight(b.String(), "\n"))
	}

	var parts [][]byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() != ast.TypeBlock {
			continue
		}
		if t := rawText(c, src); len(t) > 0 {
			parts = append(parts, t)
		}
	}
	return joinLines(parts)
}

func joinLines(parts [][]byte) []byte {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.Write(p)
	}
	return []byte(b.String())
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify converts a heading into a key-friendly format.
func slugify(s string) string {
	s = strings.ToLower(s)
	s = slugPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
