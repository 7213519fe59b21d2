// internal/workspace/scan.go
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"contexter/internal/classify"
	"contexter/internal/snapshot"
)

// FileInfo is one enumerated regular file
type FileInfo struct {
	Rel     string
	Abs     string
	Size    int64
	ModTime time.Time
}

// Walk visits the regular files under root in lexical order, skipping
// excluded files and never descending into excluded directories. Symlinks
// and other special files are not visited.
func Walk(root string, ig *Ignore, fn func(FileInfo) error) error {
	if ig == nil {
		ig = NewIgnore()
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if ig.MatchName(d.Name()) || ig.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", rel, err)
		}
		return fn(FileInfo{Rel: rel, Abs: p, Size: info.Size(), ModTime: info.ModTime()})
	})
}

// ReadContent reads one file as snapshot content. Invalid UTF-8 sequences
// are dropped from text files.
func ReadContent(abs string) (snapshot.Content, error) {
	if classify.File(abs) == snapshot.KindBinary {
		return snapshot.Binary, nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return snapshot.Content{}, err
	}
	return snapshot.Text(strings.ToValidUTF8(string(data), "")), nil
}

// Scanner builds snapshots from directories
type Scanner struct {
	ignore     *Ignore
	ignoreFile string
	skip       map[string]bool
	logger     *zap.Logger
}

// NewScanner uses ig for every root. When ignoreFile is set, that file is
// also read from each scanned directory.
func NewScanner(ig *Ignore, ignoreFile string, logger *zap.Logger) *Scanner {
	if ig == nil {
		ig = DefaultIgnore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{ignore: ig, ignoreFile: ignoreFile, skip: make(map[string]bool), logger: logger}
}

// SkipFile excludes one file by location, typically the output being written
func (s *Scanner) SkipFile(file string) {
	if abs, err := filepath.Abs(file); err == nil {
		s.skip[abs] = true
	}
}

// IgnoreFor returns the rules used under root. Problems with the ignore
// file are logged and the rules it did provide are kept.
func (s *Scanner) IgnoreFor(root string) *Ignore {
	ig := s.ignore.Clone()
	if s.ignoreFile != "" {
		file := filepath.Join(root, s.ignoreFile)
		if err := ig.AddFile(file); err != nil {
			s.logger.Warn("Ignore file not fully applied", zap.String("file", file), zap.Error(err))
		}
	}
	return ig
}

// Snapshot reads every included file under root, keyed relative to root
func (s *Scanner) Snapshot(root string) (*snapshot.Snapshot, error) {
	snap := snapshot.New()
	if err := s.scanInto(snap, root); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Scanner) scanInto(snap *snapshot.Snapshot, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return Walk(absRoot, s.IgnoreFor(absRoot), func(fi FileInfo) error {
		if s.skip[fi.Abs] {
			return nil
		}
		key, err := snapshot.NormalizePath(fi.Rel)
		if err != nil {
			s.logger.Warn("Skipping file with unusable name", zap.String("path", fi.Abs), zap.Error(err))
			return nil
		}
		c, err := ReadContent(fi.Abs)
		if err != nil {
			s.logger.Warn("Skipping unreadable file", zap.String("path", fi.Abs), zap.Error(err))
			return nil
		}
		if snap.Has(key) {
			return fmt.Errorf("duplicate path %q from %s", key, fi.Abs)
		}
		if c.IsBinary() {
			s.logger.Debug("Skipping binary content", zap.String("path", key))
		}
		return snap.Put(key, c)
	})
}
