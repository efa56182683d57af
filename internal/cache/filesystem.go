package cache

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"panorama/internal/metrics"
)

// FileStore persists Query Lab results on disk, one JSON document per key.
// Keys are hashed into filenames so arbitrary key strings stay safe on any
// filesystem. Expired entries read as absent and are removed on access.
type FileStore struct {
	dir string
	ttl time.Duration
}

type fileEntry struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
	Value     []byte    `json:"value"`
}

// NewFileStore creates the store directory if needed.
func NewFileStore(dir string, ttl time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create store dir: %w", err)
	}
	return &FileStore{dir: dir, ttl: ttl}, nil
}

// Set writes the value with an expiry of now plus the store TTL.
func (s *FileStore) Set(key string, value []byte) error {
	entry := fileEntry{
		Key:       key,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
		Value:     value,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	// Write-then-rename so a crash mid-write never leaves a torn document.
	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cache: write entry: %w", err)
	}
	return os.Rename(tmp, path)
}

// Get fetches a value by key. Returns ErrNotFound for absent or expired
// entries; expired files are removed.
func (s *FileStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		metrics.CacheRequests.WithLabelValues("filesystem", "miss").Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read entry: %w", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("cache: decode entry: %w", err)
	}
	if time.Now().UTC().After(entry.ExpiresAt) {
		os.Remove(s.path(key))
		metrics.CacheRequests.WithLabelValues("filesystem", "miss").Inc()
		return nil, ErrNotFound
	}

	metrics.CacheRequests.WithLabelValues("filesystem", "hit").Inc()
	return entry.Value, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, fmt.Sprintf("%x.json", sum))
}
