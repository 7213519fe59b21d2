package change

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"contexter/internal/classify"
	"contexter/internal/snapshot"
	"contexter/internal/storage"
	"contexter/internal/workspace"
)

const fileStatePrefix = "filestate"

// WalkMirror mirrors a directory by walking it. A file's content is
// fingerprinted only when its size or modification time differs from what
// the index recorded at the last Sync. Binary files are mirrored as empty
// placeholders.
type WalkMirror struct {
	db     *badger.DB
	owned  bool
	index  *storage.BadgerStore[FileState]
	logger *zap.Logger
}

// NewWalkMirror keeps its index in db, which stays owned by the caller
func NewWalkMirror(db *badger.DB, logger *zap.Logger) *WalkMirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalkMirror{
		db:     db,
		index:  storage.NewBadgerStore[FileState](db, fileStatePrefix),
		logger: logger,
	}
}

// OpenWalkMirror opens (or creates) an index database at indexDir. Close
// releases it.
func OpenWalkMirror(indexDir string, logger *zap.Logger) (*WalkMirror, error) {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	db, err := storage.Open(indexDir)
	if err != nil {
		return nil, err
	}
	m := NewWalkMirror(db, logger)
	m.owned = true
	return m, nil
}

func (m *WalkMirror) Close() error {
	if m.owned {
		return m.db.Close()
	}
	return nil
}

func ignoreFor(excludes []string) (*workspace.Ignore, error) {
	ig := workspace.NewIgnore()
	if err := ig.Add(excludes...); err != nil {
		return nil, err
	}
	return ig, nil
}

func (m *WalkMirror) Compare(ctx context.Context, source, dest string, excludes []string) (*Report, error) {
	ig, err := ignoreFor(excludes)
	if err != nil {
		return nil, err
	}

	mirrored := make(map[string]bool)
	err = workspace.Walk(dest, ig, func(fi workspace.FileInfo) error {
		mirrored[fi.Rel] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking mirror %s: %w", dest, err)
	}

	states, err := m.index.List()
	if err != nil {
		return nil, fmt.Errorf("loading file index: %w", err)
	}

	report := &Report{}
	hashed := 0
	err = workspace.Walk(source, ig, func(fi workspace.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !mirrored[fi.Rel] {
			report.Added = append(report.Added, fi.Rel)
			return nil
		}
		delete(mirrored, fi.Rel)

		state := states[fi.Rel]
		if state != nil && state.Size == fi.Size && state.ModTime.Equal(fi.ModTime) {
			return nil
		}
		hashed++
		changed, err := m.changed(fi, state, filepath.Join(dest, filepath.FromSlash(fi.Rel)))
		if err != nil {
			return err
		}
		if changed {
			report.Modified = append(report.Modified, fi.Rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", source, err)
	}

	for rel := range mirrored {
		report.Deleted = append(report.Deleted, rel)
	}
	report.sort()

	m.logger.Debug("Compared against mirror",
		zap.String("source", source),
		zap.Int("fingerprinted", hashed),
		zap.Int("added", len(report.Added)),
		zap.Int("modified", len(report.Modified)),
		zap.Int("deleted", len(report.Deleted)))
	return report, nil
}

// changed fingerprints a file whose stat no longer matches the index. With
// no index entry the mirrored copy itself is fingerprinted instead.
func (m *WalkMirror) changed(fi workspace.FileInfo, state *FileState, mirrorPath string) (bool, error) {
	sum, err := fingerprint(fi.Abs)
	if err != nil {
		return false, err
	}
	if state != nil {
		return sum != state.Hash, nil
	}

	if classify.File(fi.Abs) == snapshot.KindBinary {
		info, err := os.Stat(mirrorPath)
		if err == nil && info.Size() == 0 {
			return false, nil
		}
	}
	mirrorSum, err := fingerprint(mirrorPath)
	if err != nil {
		return false, err
	}
	return sum != mirrorSum, nil
}

func fingerprint(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return h.Sum64(), nil
}

// Sync copies source into a staging directory next to dest and swaps it in
// with renames, then records the new file states.
func (m *WalkMirror) Sync(ctx context.Context, source, dest string, excludes []string) error {
	ig, err := ignoreFor(excludes)
	if err != nil {
		return err
	}

	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", parent, err)
	}
	staging := filepath.Join(parent, "."+filepath.Base(dest)+"-"+uuid.NewString())
	if err := os.Mkdir(staging, 0o755); err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	states := make(map[string]*FileState)
	err = workspace.Walk(source, ig, func(fi workspace.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.Join(staging, filepath.FromSlash(fi.Rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		sum, err := mirrorFile(fi.Abs, target)
		if err != nil {
			return err
		}
		states[fi.Rel] = &FileState{Hash: sum, ModTime: fi.ModTime, Size: fi.Size}
		return nil
	})
	if err != nil {
		return fmt.Errorf("copying %s: %w", source, err)
	}

	if err := swapDir(staging, dest); err != nil {
		return err
	}
	if err := m.index.Replace(states); err != nil {
		return fmt.Errorf("saving file index: %w", err)
	}

	m.logger.Debug("Mirror synced", zap.String("source", source), zap.String("dest", dest), zap.Int("files", len(states)))
	return nil
}

// mirrorFile copies src to dst and returns the fingerprint of src. Binary
// files are fingerprinted but written empty.
func mirrorFile(src, dst string) (uint64, error) {
	if classify.File(src) == snapshot.KindBinary {
		sum, err := fingerprint(src)
		if err != nil {
			return 0, err
		}
		return sum, os.WriteFile(dst, nil, 0o644)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dst, err)
	}
	h := xxh3.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		out.Close()
		return 0, fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// swapDir replaces dest with staging. On failure the previous dest is put
// back.
func swapDir(staging, dest string) error {
	previous := staging + ".old"
	hadDest := false
	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, previous); err != nil {
			return fmt.Errorf("moving old mirror aside: %w", err)
		}
		hadDest = true
	}
	if err := os.Rename(staging, dest); err != nil {
		if hadDest {
			_ = os.Rename(previous, dest)
		}
		return fmt.Errorf("installing mirror: %w", err)
	}
	if hadDest {
		if err := os.RemoveAll(previous); err != nil {
			return fmt.Errorf("removing old mirror: %w", err)
		}
	}
	return nil
}
