package change

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contexter/internal/diff"
	"contexter/internal/errors"
	"contexter/internal/snapshot"
	"contexter/internal/workspace"
)

// Detector finds what changed in a project since its last run by asking a
// mirror for the drifted paths, diffing only those, and committing the
// project as the new baseline once the patch has been delivered.
type Detector struct {
	mirror   Mirror
	engine   *diff.Engine
	excludes []string
	logger   *zap.Logger
	trim     bool
	mu       sync.Mutex
}

// DetectorOption adjusts a Detector
type DetectorOption func(*Detector)

// WithTrimmedText diffs text with blank edge lines removed on both sides,
// which is how a text container stores it. Use it when the patch is applied
// to a text container.
func WithTrimmedText() DetectorOption {
	return func(d *Detector) { d.trim = true }
}

// NewDetector excludes the cache directory in addition to excludes. A nil
// engine uses the default context width.
func NewDetector(mirror Mirror, engine *diff.Engine, excludes []string, logger *zap.Logger, opts ...DetectorOption) *Detector {
	if engine == nil {
		engine = diff.NewEngine(diff.DefaultContext)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ex := append([]string{workspace.CacheDirName}, excludes...)
	d := &Detector{mirror: mirror, engine: engine, excludes: ex, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run compares projectDir against its baseline. The first run only
// creates the baseline. When something changed the patch set goes to sink,
// and the baseline is replaced only if sink succeeds. Runs on the same
// detector are serialized.
func (d *Detector) Run(ctx context.Context, projectDir string, sink Sink) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res := &Result{RunID: uuid.NewString()}
	logger := d.logger.With(zap.String("run_id", res.RunID), zap.String("project", projectDir))

	if info, err := os.Stat(projectDir); err != nil || !info.IsDir() {
		return nil, errors.InputNotFound(projectDir, err)
	}
	baseline := BaselineDir(projectDir)

	_, err := os.Stat(baseline)
	if os.IsNotExist(err) {
		if err := d.mirror.Sync(ctx, projectDir, baseline, d.excludes); err != nil {
			return nil, errors.MirrorFailure("creating baseline", err)
		}
		res.Outcome = Initialized
		logger.Info("Baseline created")
		return res, nil
	}
	if err != nil {
		return nil, errors.MirrorFailure("reading baseline", err)
	}

	report, err := d.mirror.Compare(ctx, projectDir, baseline, d.excludes)
	if err != nil {
		return nil, errors.MirrorFailure("comparing against baseline", err)
	}
	res.Report = report
	if report.Empty() {
		res.Outcome = Unchanged
		logger.Info("No changes detected")
		return res, nil
	}

	old, live, err := d.loadReported(projectDir, baseline, report)
	if err != nil {
		return nil, err
	}
	if d.trim {
		old, live = old.Normalize(), live.Normalize()
	}
	ps, _ := Detect(old, live, d.engine)
	if ps.Empty() {
		// touched but identical: refresh the baseline so the files stop being reported
		if err := d.mirror.Sync(ctx, projectDir, baseline, d.excludes); err != nil {
			return nil, errors.MirrorFailure("refreshing baseline", err)
		}
		res.Outcome = Unchanged
		logger.Info("Reported files have no textual changes", zap.Int("reported", report.Total()))
		return res, nil
	}

	if sink != nil {
		if err := sink(ctx, ps); err != nil {
			logger.Error("Patch not delivered, baseline kept", zap.Error(err))
			return nil, fmt.Errorf("delivering patch: %w", err)
		}
	}
	if err := d.mirror.Sync(ctx, projectDir, baseline, d.excludes); err != nil {
		return nil, errors.MirrorFailure("committing baseline", err)
	}

	stats := ps.Stats()
	res.Outcome = Patched
	res.Patch = ps
	logger.Info("Patch generated",
		zap.Int("files", ps.Len()),
		zap.Int("additions", stats.Additions),
		zap.Int("deletions", stats.Deletions))
	return res, nil
}

// loadReported reads only the reported paths: the old side from the
// baseline and the live side from the project.
func (d *Detector) loadReported(projectDir, baseline string, report *Report) (*snapshot.Snapshot, *snapshot.Snapshot, error) {
	old, live := snapshot.New(), snapshot.New()

	load := func(snap *snapshot.Snapshot, root, rel string) error {
		if _, err := snapshot.NormalizePath(rel); err != nil {
			d.logger.Warn("Skipping file with unusable name", zap.String("path", rel), zap.Error(err))
			return nil
		}
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return nil
		}
		c, err := workspace.ReadContent(abs)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		return snap.Put(rel, c)
	}

	for _, rel := range report.Added {
		if err := load(live, projectDir, rel); err != nil {
			return nil, nil, err
		}
	}
	for _, rel := range report.Modified {
		if err := load(old, baseline, rel); err != nil {
			return nil, nil, err
		}
		if err := load(live, projectDir, rel); err != nil {
			return nil, nil, err
		}
	}
	for _, rel := range report.Deleted {
		if err := load(old, baseline, rel); err != nil {
			return nil, nil, err
		}
	}
	return old, live, nil
}
