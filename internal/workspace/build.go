package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"contexter/internal/errors"
	"contexter/internal/snapshot"
)

// Build reads the given files and directories into one document. Files in
// a directory are keyed relative to that directory, a single file by its
// base name. Missing inputs are skipped with a warning; two inputs that
// produce the same key are an error.
func (s *Scanner) Build(paths []string, withTree bool) (*snapshot.Document, error) {
	doc := snapshot.NewDocument(nil)
	found := 0

	for _, p := range paths {
		clean := filepath.Clean(p)
		info, err := os.Stat(clean)
		if err != nil {
			s.logger.Warn("Path not found, skipping", zap.String("path", clean), zap.Error(err))
			continue
		}
		found++

		if s.ignore.MatchName(filepath.Base(clean)) {
			s.logger.Debug("Input excluded", zap.String("path", clean))
			continue
		}

		if info.IsDir() {
			s.logger.Info("Processing directory", zap.String("path", clean))
			if withTree {
				tree, err := RenderTree(clean, s.IgnoreFor(clean))
				if err != nil {
					return nil, fmt.Errorf("rendering tree for %s: %w", clean, err)
				}
				doc.Trees = append(doc.Trees, tree)
			}
			if err := s.scanInto(doc.Snapshot, clean); err != nil {
				return nil, fmt.Errorf("scanning %s: %w", clean, err)
			}
			continue
		}

		key := filepath.Base(clean)
		if doc.Snapshot.Has(key) {
			return nil, fmt.Errorf("duplicate path %q from %s", key, clean)
		}
		c, err := ReadContent(clean)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", clean, err)
		}
		if err := doc.Snapshot.Put(key, c); err != nil {
			return nil, err
		}
	}

	if found == 0 {
		return nil, errors.InputNotFound(fmt.Sprint(paths), nil)
	}
	text, binary := doc.Snapshot.Counts()
	s.logger.Info("Snapshot built", zap.Int("text", text), zap.Int("binary", binary), zap.Int("trees", len(doc.Trees)))
	return doc, nil
}
