package change

import (
	"contexter/internal/diff"
	"contexter/internal/snapshot"
)

// Detect computes the patch that turns oldBaseline into live, and the
// baseline to keep afterwards, which is live itself. Neither input is
// modified.
func Detect(oldBaseline, live *snapshot.Snapshot, engine *diff.Engine) (*diff.PatchSet, *snapshot.Snapshot) {
	if engine == nil {
		engine = diff.NewEngine(diff.DefaultContext)
	}
	if oldBaseline == nil {
		oldBaseline = snapshot.New()
	}
	if live == nil {
		live = snapshot.New()
	}
	return engine.Snapshots(oldBaseline, live), live.Clone()
}
