// internal/snapshot/snapshot.go
package snapshot

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode"
)

// Kind tells text content apart from the binary marker
type Kind int

const (
	KindText Kind = iota
	KindBinary
)

func (k Kind) String() string {
	if k == KindBinary {
		return "binary"
	}
	return "text"
}

// Content is either Text(string) or the Binary marker. Binary never carries bytes.
type Content struct {
	kind Kind
	text string
}

// Binary is the marker stored for files that are never serialized as text
var Binary = Content{kind: KindBinary}

// Text wraps textual file content
func Text(s string) Content {
	return Content{kind: KindText, text: s}
}

func (c Content) Kind() Kind     { return c.kind }
func (c Content) IsBinary() bool { return c.kind == KindBinary }
func (c Content) String() string { return c.text }

func (c Content) Equal(o Content) bool {
	return c.kind == o.kind && c.text == o.text
}

// TreeSummary is the rendered directory structure of one top-level input directory
type TreeSummary struct {
	Name string
	Body string
}

// Snapshot maps normalized relative paths to content. Iteration is always lexicographic.
type Snapshot struct {
	entries map[string]Content
}

func New() *Snapshot {
	return &Snapshot{entries: make(map[string]Content)}
}

// NormalizePath converts p to a clean, relative, slash separated path.
// Control characters are rejected since container headers are single lines.
func NormalizePath(p string) (string, error) {
	if i := strings.IndexFunc(p, unicode.IsControl); i >= 0 {
		return "", fmt.Errorf("path %q contains control character %U", p, p[i])
	}
	clean := strings.ReplaceAll(p, "\\", "/")
	clean = strings.TrimLeft(clean, "/")
	clean = path.Clean(clean)
	if clean == "." || clean == "" {
		return "", fmt.Errorf("empty path %q", p)
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path %q escapes the project root", p)
	}
	return clean, nil
}

// Put stores content under the normalized form of p
func (s *Snapshot) Put(p string, c Content) error {
	key, err := NormalizePath(p)
	if err != nil {
		return err
	}
	s.entries[key] = c
	return nil
}

func (s *Snapshot) Get(p string) (Content, bool) {
	key, err := NormalizePath(p)
	if err != nil {
		return Content{}, false
	}
	c, ok := s.entries[key]
	return c, ok
}

func (s *Snapshot) Has(p string) bool {
	_, ok := s.Get(p)
	return ok
}

func (s *Snapshot) Delete(p string) {
	if key, err := NormalizePath(p); err == nil {
		delete(s.entries, key)
	}
}

func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Paths returns all keys in lexicographic order
func (s *Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.entries))
	for p := range s.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Each visits entries in path order and stops at the first error
func (s *Snapshot) Each(fn func(path string, c Content) error) error {
	for _, p := range s.Paths() {
		if err := fn(p, s.entries[p]); err != nil {
			return err
		}
	}
	return nil
}

// Counts returns the number of text and binary entries
func (s *Snapshot) Counts() (text, binary int) {
	for _, c := range s.entries {
		if c.IsBinary() {
			binary++
		} else {
			text++
		}
	}
	return text, binary
}

func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{entries: make(map[string]Content, len(s.entries))}
	for p, c := range s.entries {
		out.entries[p] = c
	}
	return out
}

func (s *Snapshot) Equal(o *Snapshot) bool {
	if s.Len() != o.Len() {
		return false
	}
	for p, c := range s.entries {
		oc, ok := o.entries[p]
		if !ok || !c.Equal(oc) {
			return false
		}
	}
	return true
}

// Normalize returns a copy whose text entries are in the form the text
// container stores: CRLF line endings become LF and leading and trailing
// blank lines are trimmed.
func (s *Snapshot) Normalize() *Snapshot {
	out := s.Clone()
	for p, c := range out.entries {
		if !c.IsBinary() {
			out.entries[p] = Text(TrimBlankLines(FoldCRLF(c.text)))
		}
	}
	return out
}

// FoldCRLF removes the carriage return before every line break, and from
// the end of s
func FoldCRLF(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return strings.Join(lines, "\n")
}

// TrimBlankLines drops whitespace-only lines at both ends of s and the final newline
func TrimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// Document is the decoded value of a container
type Document struct {
	Trees    []TreeSummary
	Snapshot *Snapshot
}

func NewDocument(s *Snapshot, trees ...TreeSummary) *Document {
	if s == nil {
		s = New()
	}
	return &Document{Trees: trees, Snapshot: s}
}
