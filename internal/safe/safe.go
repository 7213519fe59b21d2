// internal/safe/safe.go
package safe

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"contexter/internal/container"
	"contexter/internal/errors"
	"contexter/internal/snapshot"
	"contexter/internal/storage"
	"contexter/internal/workspace"
	"contexter/shared/utils"
)

const entryPrefix = "container"

// Entry describes one stored container
type Entry struct {
	ID         string           `json:"id"`
	Format     container.Format `json:"format"`
	Parent     string           `json:"parent,omitempty"`
	Files      int              `json:"files"`
	Binaries   int              `json:"binaries"`
	Trees      int              `json:"trees"`
	Size       int64            `json:"size"`
	Compressed bool             `json:"compressed"`
	CreatedAt  time.Time        `json:"created_at"`
	AccessedAt time.Time        `json:"accessed_at"`
}

// Safe is a content-addressed container store. A container is kept in its
// canonical text encoding under the SHA-256 of that encoding, so equal
// documents share one id.
type Safe struct {
	root   string
	meta   *storage.BadgerStore[Entry]
	cache  *lru.Cache[string, *snapshot.Document]
	comp   *compressionManager
	mu     sync.Mutex
	logger *zap.Logger
}

// Options configures Safe behavior
type Options struct {
	Root        string
	CacheSize   int
	Compression CompressionOptions
}

func New(db *badger.DB, opts Options, logger *zap.Logger) (*Safe, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if err := os.MkdirAll(opts.Root, 0o755); err != nil {
		return nil, fmt.Errorf("creating root directory: %w", err)
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.Compression == (CompressionOptions{}) {
		opts.Compression = DefaultCompressionOptions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cache, err := lru.New[string, *snapshot.Document](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	comp, err := newCompressionManager(opts.Compression)
	if err != nil {
		return nil, err
	}

	return &Safe{
		root:   opts.Root,
		meta:   storage.NewBadgerStore[Entry](db, entryPrefix),
		cache:  cache,
		comp:   comp,
		logger: logger,
	}, nil
}

// Put stores doc and returns its entry. Storing a document that is already
// present returns the existing entry.
func (s *Safe) Put(doc *snapshot.Document, format container.Format, parent string) (*Entry, error) {
	text, err := container.EncodeString(container.TextCodec{}, doc)
	if err != nil {
		return nil, errors.Internal("encoding container", err)
	}
	content := []byte(text)
	id := utils.HashContent(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := s.meta.Get(id); err == nil {
		return existing, nil
	} else if !stderrors.Is(err, storage.ErrNotFound) {
		return nil, errors.Internal("reading metadata", err)
	}

	stored, compressed, err := s.comp.compress(content)
	if err != nil {
		return nil, errors.Internal("compressing container", err)
	}
	path := s.contentPath(id)
	if err := workspace.WriteFileAtomic(path, stored, 0o644); err != nil {
		return nil, errors.Internal("writing container", err)
	}

	files, binaries := doc.Snapshot.Counts()
	now := time.Now().UTC()
	entry := &Entry{
		ID:         id,
		Format:     format,
		Parent:     parent,
		Files:      files,
		Binaries:   binaries,
		Trees:      len(doc.Trees),
		Size:       int64(len(content)),
		Compressed: compressed,
		CreatedAt:  now,
		AccessedAt: now,
	}
	if err := s.meta.Create(id, entry); err != nil {
		os.Remove(path)
		return nil, errors.Internal("storing metadata", err)
	}

	s.logger.Debug("Container stored",
		zap.String("id", id),
		zap.Int64("size", entry.Size),
		zap.Int("stored", len(stored)),
		zap.Bool("compressed", compressed))
	return entry, nil
}

// Get returns a copy of the stored document
func (s *Safe) Get(id string) (*snapshot.Document, *Entry, error) {
	if !isValidID(id) {
		return nil, nil, errors.ValidationError("invalid container id", map[string]string{"id": id})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.entry(id)
	if err != nil {
		return nil, nil, err
	}

	doc, ok := s.cache.Get(id)
	if !ok {
		content, err := s.read(id)
		if err != nil {
			return nil, nil, err
		}
		doc, err = container.DecodeText(string(content))
		if err != nil {
			return nil, nil, errors.Internal("decoding stored container", err)
		}
		s.cache.Add(id, doc)
	}

	entry.AccessedAt = time.Now().UTC()
	if err := s.meta.Put(id, entry); err != nil {
		return nil, nil, errors.Internal("updating metadata", err)
	}
	return snapshot.NewDocument(doc.Snapshot.Clone(), doc.Trees...), entry, nil
}

// Entry returns the metadata of a stored container
func (s *Safe) Entry(id string) (*Entry, error) {
	if !isValidID(id) {
		return nil, errors.ValidationError("invalid container id", map[string]string{"id": id})
	}
	return s.entry(id)
}

func (s *Safe) entry(id string) (*Entry, error) {
	entry, err := s.meta.Get(id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, errors.NotFound(fmt.Sprintf("container %s not found", id))
	}
	if err != nil {
		return nil, errors.Internal("reading metadata", err)
	}
	return entry, nil
}

// List returns every entry, oldest first
func (s *Safe) List() ([]*Entry, error) {
	all, err := s.meta.List()
	if err != nil {
		return nil, errors.Internal("listing containers", err)
	}
	entries := make([]*Entry, 0, len(all))
	for _, e := range all {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *Safe) Delete(id string) error {
	if !isValidID(id) {
		return errors.ValidationError("invalid container id", map[string]string{"id": id})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.entry(id); err != nil {
		return err
	}
	if err := os.Remove(s.contentPath(id)); err != nil && !os.IsNotExist(err) {
		return errors.Internal("removing container", err)
	}
	if err := s.meta.Delete(id); err != nil {
		return errors.Internal("deleting metadata", err)
	}
	s.cache.Remove(id)
	return nil
}

// Verify re-reads a container from disk and checks it against its id
func (s *Safe) Verify(id string) error {
	if !isValidID(id) {
		return errors.ValidationError("invalid container id", map[string]string{"id": id})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.read(id)
	return err
}

func (s *Safe) read(id string) ([]byte, error) {
	stored, err := os.ReadFile(s.contentPath(id))
	if os.IsNotExist(err) {
		return nil, errors.NotFound(fmt.Sprintf("container %s has no content", id))
	}
	if err != nil {
		return nil, errors.Internal("reading container", err)
	}
	content, err := s.comp.decompress(stored)
	if err != nil {
		return nil, errors.Internal("decompressing container", err)
	}
	if utils.HashContent(content) != id {
		return nil, errors.Internal(fmt.Sprintf("container %s failed verification", id), nil)
	}
	return content, nil
}

func (s *Safe) contentPath(id string) string {
	return filepath.Join(s.root, id[:2], id[2:])
}

func isValidID(id string) bool {
	return utils.IsHash(id) && strings.ToLower(id) == id
}
