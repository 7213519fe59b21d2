// internal/workspace/ignore.go
package workspace

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// CacheDirName holds the change detector's baseline and index inside a project
const CacheDirName = ".contexter_cache"

// DefaultIgnoreFile is read from a project root when present
const DefaultIgnoreFile = ".gitignore"

// DefaultPatterns are always excluded from enumeration
func DefaultPatterns() []string {
	return []string{
		".git*", "node_modules", "__pycache__", "*.pyc", "*.pyo", "dist", "build",
		".venv", "venv", "*.lock", ".DS_Store", "*.log", CacheDirName,
	}
}

// Ignore decides which relative paths are excluded. A pattern without a
// slash matches any single path component; a pattern with one matches the
// whole relative path (doublestar syntax, "**" allowed).
type Ignore struct {
	names []string
	paths []string
}

func NewIgnore(patterns ...string) *Ignore {
	ig := &Ignore{}
	ig.Add(patterns...)
	return ig
}

// DefaultIgnore is NewIgnore(DefaultPatterns()...)
func DefaultIgnore() *Ignore {
	return NewIgnore(DefaultPatterns()...)
}

func (ig *Ignore) Clone() *Ignore {
	return &Ignore{
		names: append([]string(nil), ig.names...),
		paths: append([]string(nil), ig.paths...),
	}
}

// Add appends patterns. Blank patterns, comments and negations are dropped,
// and invalid patterns are reported by the returned error after the valid
// ones have been added.
func (ig *Ignore) Add(patterns ...string) error {
	var bad []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") || strings.HasPrefix(p, "!") {
			continue
		}
		p = strings.TrimSuffix(p, "/")
		if !doublestar.ValidatePattern(p) {
			bad = append(bad, p)
			continue
		}
		if strings.Contains(p, "/") {
			ig.paths = append(ig.paths, strings.TrimPrefix(p, "/"))
		} else {
			ig.names = append(ig.names, p)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid exclude patterns: %s", strings.Join(bad, ", "))
	}
	return nil
}

// AddFile adds the patterns of an ignore file. A missing file is not an error.
func (ig *Ignore) AddFile(file string) error {
	f, err := os.Open(file)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading ignore file %s: %w", file, err)
	}
	return ig.Add(patterns...)
}

// MatchName reports whether a single path component is excluded
func (ig *Ignore) MatchName(name string) bool {
	for _, p := range ig.names {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Match reports whether rel (slash separated, relative to the root) or any
// of its parent directories is excluded.
func (ig *Ignore) Match(rel string) bool {
	rel = strings.Trim(path.Clean(strings.ReplaceAll(rel, "\\", "/")), "/")
	if rel == "" || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if ig.MatchName(part) {
			return true
		}
	}
	for _, p := range ig.paths {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p+"/**", rel); ok {
			return true
		}
	}
	return false
}

// Patterns returns every active pattern, for passing to an external mirror
func (ig *Ignore) Patterns() []string {
	out := make([]string, 0, len(ig.names)+len(ig.paths))
	out = append(out, ig.names...)
	return append(out, ig.paths...)
}
