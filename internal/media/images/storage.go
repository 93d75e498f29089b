// Package images fetches IGDB artwork and keeps resized copies in a disk cache.
package images

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultTTL matches the max-age advertised to HTTP clients.
const DefaultTTL = 180 * 24 * time.Hour

// ErrNotCached is returned by Storage.Get for unknown keys.
var ErrNotCached = errors.New("image not cached")

// Storage is a badger-backed byte cache for image data.
// Entries expire after the configured TTL.
type Storage struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// OpenStorage opens (or creates) the image cache at dir.
// An empty dir opens an in-memory cache.
func OpenStorage(dir string, ttl time.Duration, logger *slog.Logger) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open image cache: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	logger.Info("image cache opened", slog.String("path", dir))
	return &Storage{db: db, ttl: ttl, logger: logger}, nil
}

// Save stores image data under key.
func (s *Storage) Save(key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if len(data) == 0 {
		return fmt.Errorf("image data cannot be empty")
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), data).WithTTL(s.ttl))
	})
}

// Get retrieves image data for key or ErrNotCached.
func (s *Storage) Get(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", key, err)
	}
	return data, nil
}

// Exists checks if key is cached.
func (s *Storage) Exists(key string) bool {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	return err == nil
}

// Delete removes key and every resized variant stored under it.
func (s *Storage) Delete(key string) error {
	prefix := []byte(key + "@")
	return s.db.Update(func(txn *badger.Txn) error {
		keys := [][]byte{[]byte(key)}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close flushes and closes the cache.
func (s *Storage) Close() error {
	s.logger.Info("closing image cache")
	return s.db.Close()
}
