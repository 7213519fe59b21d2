package diff

import (
	"sort"

	"contexter/internal/snapshot"
)

// FileChange is the change to one path. No hunks means delete.
type FileChange struct {
	Hunks []Hunk
}

func Delete() FileChange { return FileChange{} }

func (c FileChange) IsDelete() bool {
	return len(c.Hunks) == 0
}

// PatchSet maps normalized paths to their changes. A path absent from the
// set is unchanged.
type PatchSet struct {
	changes map[string]FileChange
}

func NewPatchSet() *PatchSet {
	return &PatchSet{changes: make(map[string]FileChange)}
}

func (ps *PatchSet) Put(p string, c FileChange) error {
	key, err := snapshot.NormalizePath(p)
	if err != nil {
		return err
	}
	ps.changes[key] = c
	return nil
}

func (ps *PatchSet) Get(p string) (FileChange, bool) {
	key, err := snapshot.NormalizePath(p)
	if err != nil {
		return FileChange{}, false
	}
	c, ok := ps.changes[key]
	return c, ok
}

func (ps *PatchSet) Has(p string) bool {
	_, ok := ps.Get(p)
	return ok
}

func (ps *PatchSet) Len() int {
	return len(ps.changes)
}

func (ps *PatchSet) Empty() bool {
	return len(ps.changes) == 0
}

func (ps *PatchSet) Paths() []string {
	paths := make([]string, 0, len(ps.changes))
	for p := range ps.changes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Each visits changes in path order
func (ps *PatchSet) Each(fn func(path string, c FileChange) error) error {
	for _, p := range ps.Paths() {
		if err := fn(p, ps.changes[p]); err != nil {
			return err
		}
	}
	return nil
}

// Merge copies every change of o into ps, replacing changes to the same path
func (ps *PatchSet) Merge(o *PatchSet) {
	for p, c := range o.changes {
		ps.changes[p] = c
	}
}

func (ps *PatchSet) Stats() Stats {
	var s Stats
	deletes := 0
	for _, c := range ps.changes {
		if c.IsDelete() {
			deletes++
			continue
		}
		s.add(c.Hunks)
	}
	s.Changes += deletes
	return s
}

// Snapshots diffs two snapshots over the union of their paths. Unchanged
// paths are omitted, paths missing from next become deletions and new
// binary entries are skipped because binary content is never diffed.
func (e *Engine) Snapshots(prev, next *snapshot.Snapshot) *PatchSet {
	ps := NewPatchSet()

	for _, p := range prev.Paths() {
		if !next.Has(p) {
			ps.changes[p] = Delete()
		}
	}

	for _, p := range next.Paths() {
		nc, _ := next.Get(p)
		oc, existed := prev.Get(p)
		if existed && oc.Equal(nc) {
			continue
		}
		if nc.IsBinary() {
			continue
		}
		old := ""
		if existed && !oc.IsBinary() {
			old = oc.String()
		}
		result := e.Diff(old, nc.String())
		if result.Empty() {
			// an empty file created from nothing has no hunks to carry
			continue
		}
		ps.changes[p] = FileChange{Hunks: result.Hunks}
	}

	return ps
}
