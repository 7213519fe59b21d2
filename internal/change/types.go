// internal/change/types.go
package change

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"contexter/internal/diff"
	"contexter/internal/workspace"
)

const (
	baselineDirName = "tree"
	indexDirName    = "index"
)

// BaselineDir is where the mirrored copy of a project lives
func BaselineDir(projectDir string) string {
	return filepath.Join(projectDir, workspace.CacheDirName, baselineDirName)
}

// IndexDir holds the file-state index of the walk mirror
func IndexDir(projectDir string) string {
	return filepath.Join(projectDir, workspace.CacheDirName, indexDirName)
}

// Report itemizes how a source tree differs from its mirror. Paths are
// slash separated and relative to the source.
type Report struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Deleted  []string `json:"deleted"`
}

func (r *Report) Empty() bool {
	return r == nil || len(r.Added)+len(r.Modified)+len(r.Deleted) == 0
}

func (r *Report) Total() int {
	if r == nil {
		return 0
	}
	return len(r.Added) + len(r.Modified) + len(r.Deleted)
}

func (r *Report) sort() {
	sort.Strings(r.Added)
	sort.Strings(r.Modified)
	sort.Strings(r.Deleted)
}

// Mirror keeps a copy of a directory and reports how the original has
// drifted from it. Compare never modifies dest; Sync makes dest match
// source.
type Mirror interface {
	Compare(ctx context.Context, source, dest string, excludes []string) (*Report, error)
	Sync(ctx context.Context, source, dest string, excludes []string) error
}

// FileState is what the walk mirror remembers about a source file at the
// last sync
type FileState struct {
	Hash    uint64    `json:"hash"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// Outcome of one detector run
type Outcome int

const (
	Initialized Outcome = iota
	Unchanged
	Patched
)

func (o Outcome) String() string {
	switch o {
	case Initialized:
		return "initialized"
	case Unchanged:
		return "unchanged"
	case Patched:
		return "patched"
	default:
		return "unknown"
	}
}

// Result describes one detector run. Patch is set only for Patched runs.
type Result struct {
	RunID   string
	Outcome Outcome
	Report  *Report
	Patch   *diff.PatchSet
}

// Sink consumes the patch set of a run before the baseline is committed
type Sink func(ctx context.Context, ps *diff.PatchSet) error
