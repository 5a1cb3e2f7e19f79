// Package cache stores workbook analysis results on disk, keyed by the
// workbook's content hash and the settings that produced them.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
)

// Cache provides file-based caching for analysis results.
type Cache struct {
	fs      afero.Fs
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry represents a cached analysis result.
type Entry struct {
	Hash      string          `json:"hash"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New creates a cache in dir on the OS filesystem.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	return NewWithFs(afero.NewOsFs(), dir, ttlHours, enabled)
}

// NewWithFs creates a cache on an arbitrary filesystem.
func NewWithFs(fs afero.Fs, dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{
		fs:      fs,
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool { return c.enabled }

// HashFile computes a BLAKE3 hash of a file's contents.
func HashFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Key derives the cache key for a workbook analyzed under settings.
// Settings are hashed through their JSON form, so any change to them
// selects a different entry.
func Key(path string, settings any) (string, error) {
	data, err := json.Marshal(settings)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return abs + "#" + HashBytes(data), nil
}

// Get decodes the entry for key into v. It misses when the entry is
// absent, expired, unreadable or was stored for a different content hash.
func (c *Cache) Get(key, hash string, v any) bool {
	if !c.enabled {
		return false
	}

	path := c.keyPath(key)
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return false
	}
	if entry.Hash != hash {
		return false
	}
	if time.Since(entry.Timestamp) > c.ttl {
		_ = c.fs.Remove(path)
		return false
	}
	return json.Unmarshal(entry.Data, v) == nil
}

// Set stores v under key for content hash.
func (c *Cache) Set(key, hash string, v any) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	entryData, err := json.Marshal(Entry{
		Hash:      hash,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		return err
	}
	return afero.WriteFile(c.fs, c.keyPath(key), entryData, 0o600)
}

// Invalidate removes a cache entry.
func (c *Cache) Invalidate(key string) error {
	if !c.enabled {
		return nil
	}
	err := c.fs.Remove(c.keyPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	return c.fs.RemoveAll(c.dir)
}

// keyPath converts a key to a filesystem path.
func (c *Cache) keyPath(key string) string {
	return filepath.Join(c.dir, HashBytes([]byte(key))+".json")
}

// Stats summarizes what the cache holds.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
}

// GetStats returns statistics about the cache.
func (c *Cache) GetStats() (*Stats, error) {
	if !c.enabled {
		return &Stats{}, nil
	}

	stats := &Stats{}
	var oldest, newest time.Time

	err := afero.Walk(c.fs, c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		stats.Entries++
		stats.TotalSize += info.Size()

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}
	return stats, nil
}
