// internal/storage/badger_store.go
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a key has no value
var ErrNotFound = errors.New("entity not found")

// Open opens (or creates) a badger database at dir with badger's own logging silenced
func Open(dir string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dir, err)
	}
	return db, nil
}

// OpenInMemory opens a database that lives only as long as the process
func OpenInMemory() (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

// BadgerStore stores JSON values of type T under "<prefix>:<id>" keys
type BadgerStore[T any] struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore[T any](db *badger.DB, prefix string) *BadgerStore[T] {
	return &BadgerStore[T]{
		db:     db,
		prefix: prefix,
	}
}

func (s *BadgerStore[T]) makeKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", s.prefix, id))
}

func (s *BadgerStore[T]) stripPrefix(key []byte) string {
	return strings.TrimPrefix(string(key), s.prefix+":")
}

// Create fails if id already has a value
func (s *BadgerStore[T]) Create(id string, value *T) error {
	if id == "" {
		return fmt.Errorf("entity ID cannot be empty")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}

	key := s.makeKey(id)
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("entity already exists: %s", id)
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, data)
	})
}

// Put creates or replaces the value for id
func (s *BadgerStore[T]) Put(id string, value *T) error {
	if id == "" {
		return fmt.Errorf("entity ID cannot be empty")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.makeKey(id), data)
	})
}

func (s *BadgerStore[T]) Get(id string) (*T, error) {
	var value T
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.makeKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &value)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (s *BadgerStore[T]) Delete(id string) error {
	key := s.makeKey(id)
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// Each visits every entry in key order
func (s *BadgerStore[T]) Each(fn func(id string, value *T) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(s.prefix + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var value T
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &value)
			})
			if err != nil {
				return fmt.Errorf("decoding %s: %w", item.Key(), err)
			}
			if err := fn(s.stripPrefix(item.KeyCopy(nil)), &value); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns every entry keyed by id
func (s *BadgerStore[T]) List() (map[string]*T, error) {
	out := make(map[string]*T)
	err := s.Each(func(id string, value *T) error {
		out[id] = value
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	return out, nil
}

// Replace drops every entry under the prefix, then writes entries in one batch
func (s *BadgerStore[T]) Replace(entries map[string]*T) error {
	prefix := []byte(s.prefix + ":")
	if err := s.db.DropPrefix(prefix); err != nil {
		return fmt.Errorf("clearing %s: %w", s.prefix, err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for id, value := range entries {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshaling entity %s: %w", id, err)
		}
		if err := wb.Set(s.makeKey(id), data); err != nil {
			return err
		}
	}
	return wb.Flush()
}
