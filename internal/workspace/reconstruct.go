package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"contexter/internal/snapshot"
)

// Target resolves a snapshot path below dir, refusing anything that would
// land outside it.
func Target(dir, p string) (string, error) {
	key, err := snapshot.NormalizePath(p)
	if err != nil {
		return "", err
	}
	target := filepath.Join(dir, filepath.FromSlash(key))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", p, dir)
	}
	return target, nil
}

// Materialize writes every entry of snap below dir. Binary entries become
// empty placeholder files. It returns the number of files written.
func Materialize(snap *snapshot.Snapshot, dir string, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", dir, err)
	}

	written := 0
	err := snap.Each(func(p string, c snapshot.Content) error {
		target, err := Target(dir, p)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", p, err)
		}
		data := []byte(c.String())
		if c.IsBinary() {
			logger.Debug("Writing placeholder for binary file", zap.String("path", p))
			data = nil
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", p, err)
		}
		written++
		return nil
	})
	return written, err
}
