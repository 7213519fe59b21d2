package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func TestBadgerStore(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	store := NewBadgerStore[record](db, "records")
	other := NewBadgerStore[record](db, "other")

	t.Run("Create", func(t *testing.T) {
		require.NoError(t, store.Create("a", &record{Name: "a", Size: 1}))
		assert.Error(t, store.Create("a", &record{Name: "again"}))
		assert.Error(t, store.Create("", &record{}))
	})

	t.Run("Get", func(t *testing.T) {
		got, err := store.Get("a")
		require.NoError(t, err)
		assert.Equal(t, &record{Name: "a", Size: 1}, got)

		_, err = store.Get("missing")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Put", func(t *testing.T) {
		require.NoError(t, store.Put("a", &record{Name: "a", Size: 2}))
		require.NoError(t, store.Put("b/c.txt", &record{Name: "c", Size: 3}))
		got, err := store.Get("a")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Size)
	})

	t.Run("List is scoped to the prefix", func(t *testing.T) {
		require.NoError(t, other.Put("x", &record{Name: "x"}))
		all, err := store.List()
		require.NoError(t, err)
		assert.Len(t, all, 2)
		assert.Contains(t, all, "b/c.txt")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete("a"))
		assert.True(t, errors.Is(store.Delete("a"), ErrNotFound))
	})

	t.Run("Replace", func(t *testing.T) {
		require.NoError(t, store.Replace(map[string]*record{
			"n1": {Name: "n1"},
			"n2": {Name: "n2"},
		}))
		all, err := store.List()
		require.NoError(t, err)
		assert.Len(t, all, 2)
		assert.Contains(t, all, "n1")

		kept, err := other.List()
		require.NoError(t, err)
		assert.Len(t, kept, 1)
	})
}
