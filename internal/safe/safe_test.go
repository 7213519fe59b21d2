package safe

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contexter/internal/container"
	"contexter/internal/errors"
	"contexter/internal/snapshot"
	"contexter/internal/storage"
)

func newSafe(t *testing.T, comp CompressionOptions) *Safe {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(db, Options{Root: t.TempDir(), CacheSize: 4, Compression: comp}, nil)
	require.NoError(t, err)
	return s
}

func sampleDoc(t *testing.T, body string) *snapshot.Document {
	t.Helper()
	snap := snapshot.New()
	require.NoError(t, snap.Put("src/main.go", snapshot.Text(body)))
	require.NoError(t, snap.Put("logo.png", snapshot.Binary))
	return snapshot.NewDocument(snap, snapshot.TreeSummary{Name: "proj", Body: "proj/\n├── logo.png"})
}

func TestSafe(t *testing.T) {
	t.Run("put and get", func(t *testing.T) {
		s := newSafe(t, CompressionOptions{})
		doc := sampleDoc(t, "package main\n")

		entry, err := s.Put(doc, container.FormatMarkdown, "")
		require.NoError(t, err)
		assert.Len(t, entry.ID, 64)
		assert.Equal(t, 1, entry.Files)
		assert.Equal(t, 1, entry.Binaries)
		assert.Equal(t, 1, entry.Trees)
		assert.False(t, entry.Compressed)

		got, gotEntry, err := s.Get(entry.ID)
		require.NoError(t, err)
		assert.True(t, got.Snapshot.Equal(doc.Snapshot.Normalize()))
		assert.Equal(t, doc.Trees, got.Trees)
		assert.Equal(t, entry.ID, gotEntry.ID)
		require.NoError(t, s.Verify(entry.ID))
	})

	t.Run("equal documents share an id", func(t *testing.T) {
		s := newSafe(t, CompressionOptions{})
		a, err := s.Put(sampleDoc(t, "x\n"), container.FormatMarkdown, "")
		require.NoError(t, err)
		b, err := s.Put(sampleDoc(t, "x\n"), container.FormatHTML, "")
		require.NoError(t, err)
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, container.FormatMarkdown, b.Format)

		c, err := s.Put(sampleDoc(t, "y\n"), container.FormatMarkdown, a.ID)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, c.ID)
		assert.Equal(t, a.ID, c.Parent)

		entries, err := s.List()
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("returned documents are copies", func(t *testing.T) {
		s := newSafe(t, CompressionOptions{})
		entry, err := s.Put(sampleDoc(t, "x\n"), container.FormatMarkdown, "")
		require.NoError(t, err)

		first, _, err := s.Get(entry.ID)
		require.NoError(t, err)
		first.Snapshot.Delete("src/main.go")

		second, _, err := s.Get(entry.ID)
		require.NoError(t, err)
		assert.True(t, second.Snapshot.Has("src/main.go"))
	})

	t.Run("compressed", func(t *testing.T) {
		for name, opts := range map[string]CompressionOptions{
			"single shot": {MinSize: 1, Level: 2, StreamingThreshold: 1 << 20},
			"streaming":   {MinSize: 1, Level: 2, StreamingThreshold: 16},
		} {
			t.Run(name, func(t *testing.T) {
				s := newSafe(t, opts)
				doc := sampleDoc(t, strings.Repeat("all work and no play\n", 200))
				entry, err := s.Put(doc, container.FormatMarkdown, "")
				require.NoError(t, err)
				assert.True(t, entry.Compressed)

				raw, err := os.ReadFile(s.contentPath(entry.ID))
				require.NoError(t, err)
				assert.Equal(t, zstdMagic, raw[:4])
				assert.Less(t, int64(len(raw)), entry.Size)

				s.cache.Purge()
				got, _, err := s.Get(entry.ID)
				require.NoError(t, err)
				assert.True(t, got.Snapshot.Equal(doc.Snapshot.Normalize()))
			})
		}
	})

	t.Run("errors", func(t *testing.T) {
		s := newSafe(t, CompressionOptions{})

		_, _, err := s.Get("nope")
		assert.True(t, errors.Is(err, errors.ErrorTypeValidation))

		_, _, err = s.Get(strings.Repeat("ab", 32))
		assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))

		entry, err := s.Put(sampleDoc(t, "x\n"), container.FormatMarkdown, "")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(s.contentPath(entry.ID), []byte("tampered"), 0o644))
		assert.Error(t, s.Verify(entry.ID))

		require.NoError(t, s.Delete(entry.ID))
		_, err = s.Entry(entry.ID)
		assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
		assert.True(t, errors.Is(s.Delete(entry.ID), errors.ErrorTypeNotFound))
	})
}
