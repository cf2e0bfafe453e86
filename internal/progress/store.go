// Package progress remembers the last viewed position per category in a
// badger key-value store.
package progress

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "progress:"

// ErrNotFound is returned when no index was saved for a category.
var ErrNotFound = errors.New("no saved progress for category")

// ErrInvalidIndex is returned for negative indexes.
var ErrInvalidIndex = errors.New("index must be 0 or greater")

// Store persists per-category viewing positions.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the progress database in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open progress db: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already opened database.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

func key(categoryID string) []byte {
	return []byte(keyPrefix + categoryID)
}

// Save records the current index for a category.
func (s *Store) Save(categoryID string, index int) error {
	if index < 0 {
		return ErrInvalidIndex
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(index))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(categoryID), buf)
	})
}

// Get returns the saved index for a category.
func (s *Store) Get(categoryID string) (int, error) {
	var index int
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(categoryID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get progress: %w", err)
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt progress record for %s", categoryID)
			}
			index = int(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	return index, err
}

// Delete removes the saved index of one category.
func (s *Store) Delete(categoryID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(categoryID))
	})
}

// DeleteAll removes every saved index and returns how many were dropped.
func (s *Store) DeleteAll() (int, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list progress: %w", err)
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("delete progress: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("delete progress: %w", err)
	}
	return len(keys), nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
