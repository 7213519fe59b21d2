// internal/change/watcher.go
package change

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"contexter/internal/workspace"
)

// DefaultDebounce is how long the tree must stay quiet before a run
const DefaultDebounce = 500 * time.Millisecond

// Watcher triggers a callback after bursts of filesystem activity under a
// project root settle down
type Watcher struct {
	root     string
	ignore   *workspace.Ignore
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
}

func NewWatcher(root string, ig *workspace.Ignore, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if ig == nil {
		ig = workspace.DefaultIgnore()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{root: root, ignore: ig, debounce: debounce, watcher: fw, logger: logger}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every included directory below it
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && w.ignored(p) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(p string) bool {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return true
	}
	if rel == "." {
		return false
	}
	return w.ignore.Match(filepath.ToSlash(rel))
}

// Run calls fn once the tree has been quiet for the debounce period after
// a relevant event, until ctx is done. Errors from fn are logged and
// watching continues.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.handle(event) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", zap.Error(err))

		case <-timer.C:
			if err := fn(ctx); err != nil {
				w.logger.Error("Triggered run failed", zap.Error(err))
			}
		}
	}
}

// handle reports whether event should schedule a run. New directories are
// watched as they appear.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if w.ignored(event.Name) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Error("Adding new directory to watcher", zap.Error(err))
			}
		}
	}
	if event.Op == fsnotify.Chmod {
		return false
	}
	w.logger.Debug("Change observed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
	return true
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
