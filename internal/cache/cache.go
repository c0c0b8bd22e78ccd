// Package cache keeps the run history of measured code sizes.
//
// Every measured (platform, config, library) size is appended to a series
// stored in BoltDB. Entries are msgpack-encoded and carry a hash of the
// build inputs, so a later run can tell a code-size change caused by the
// benchmark sources apart from one caused by a library or toolchain update.
//
// The package also owns the filesystem helpers for build outputs: copying
// artifacts into a retention directory and collecting or removing the
// object, executable and map files of a build directory.
package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

const (
	// DefaultCacheDir is the default cache directory name
	DefaultCacheDir = ".footprint-cache"

	// DefaultHistoryFile is the database file name inside the cache directory
	DefaultHistoryFile = "history.db"

	// MaxEntries caps each series; older entries are dropped first
	MaxEntries = 50

	// bucketName is the BoltDB bucket name for size series
	bucketName = "sizes"
)

// Cache manages the size history using BoltDB
type Cache struct {
	db   *bbolt.DB
	path string
}

// Series is the stored history of one (platform, config, library) triple
type Series struct {
	Platform string
	Config   string
	Library  string
	Entries  []Entry
}

// Latest returns the newest entry of the series
func (s Series) Latest() (Entry, bool) {
	if len(s.Entries) == 0 {
		return Entry{}, false
	}

	return s.Entries[len(s.Entries)-1], true
}

// New opens the history database at path, creating it when needed.
// If path is empty, uses DefaultHistoryFile in DefaultCacheDir under the
// current working directory.
func New(path string) (*Cache, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}

		path = filepath.Join(cwd, DefaultCacheDir, DefaultHistoryFile)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history bucket: %w", err)
	}

	return &Cache{db: db, path: path}, nil
}

// Path returns the database file path
func (c *Cache) Path() string {
	return c.path
}

// Close closes the history database
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}

// Key returns the storage key of a series
func Key(platform, config, library string) string {
	return platform + "/" + config + "/" + library
}

func splitKey(key string) (platform, config, library string, ok bool) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}

	return parts[0], parts[1], parts[2], true
}

func decodeEntries(data []byte) ([]Entry, error) {
	if data == nil {
		return nil, nil
	}

	var entries []Entry
	if err := msgpack.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode history entries: %w", err)
	}

	return entries, nil
}

// Record appends entry to the series of (platform, config, library)
func (c *Cache) Record(platform, config, library string, entry Entry) error {
	key := []byte(Key(platform, config, library))

	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		entries, err := decodeEntries(b.Get(key))
		if err != nil {
			return err
		}

		entries = append(entries, entry)
		if len(entries) > MaxEntries {
			entries = entries[len(entries)-MaxEntries:]
		}

		data, err := msgpack.Marshal(entries)
		if err != nil {
			return err
		}

		return b.Put(key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}

	return nil
}

// Entries returns the series of (platform, config, library), oldest first
func (c *Cache) Entries(platform, config, library string) ([]Entry, error) {
	var entries []Entry

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		var err error
		entries, err = decodeEntries(b.Get([]byte(Key(platform, config, library))))
		return err
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Previous returns the newest entry not written by runID
// Returns nil if there is none
func (c *Cache) Previous(platform, config, library, runID string) (*Entry, error) {
	entries, err := c.Entries(platform, config, library)
	if err != nil {
		return nil, err
	}

	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].RunID != runID {
			e := entries[i]
			return &e, nil
		}
	}

	return nil, nil
}

// List returns every series stored for platform in key order. An empty
// platform lists everything.
func (c *Cache) List(platform string) ([]Series, error) {
	var series []Series

	err := c.db.View(func(tx *bbolt.Tx) error {
		cur := tx.Bucket([]byte(bucketName)).Cursor()

		var prefix []byte
		if platform != "" {
			prefix = []byte(platform + "/")
		}

		for k, v := cur.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cur.Next() {
			p, cfg, lib, ok := splitKey(string(k))
			if !ok {
				continue
			}

			entries, err := decodeEntries(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}

			series = append(series, Series{Platform: p, Config: cfg, Library: lib, Entries: entries})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return series, nil
}

// Clear removes all history entries
func (c *Cache) Clear() error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	return nil
}

// Stats returns the number of stored series and the total entry count
func (c *Cache) Stats() (int, int, error) {
	var seriesCount, entryCount int

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		return b.ForEach(func(_, v []byte) error {
			entries, err := decodeEntries(v)
			if err != nil {
				return err
			}

			seriesCount++
			entryCount += len(entries)

			return nil
		})
	})
	if err != nil {
		return 0, 0, err
	}

	return seriesCount, entryCount, nil
}
