// Package cachestore persists harvested datasets as versioned JSON files,
// one file per cache key.
package cachestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const schemaVersion = 1

var (
	// ErrNotFound means no cache file exists for the key.
	ErrNotFound = errors.New("cache not found")
	// ErrCorrupted means a cache file exists but cannot be trusted. It is
	// never silently treated as absent; recovering requires the operator to
	// remove the file.
	ErrCorrupted = errors.New("cache corrupted")
)

// envelope wraps cached data with a schema version so cache files stay
// inspectable and future layout changes are detectable.
type envelope struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Data    json.RawMessage `json:"data"`
}

// Store reads and writes cache files under a single directory. Each key is a
// single-writer resource: read once at the start of a sync step, overwritten
// once at the end.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates the cache directory if needed and returns a store over it.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Load reads the cache file for key into v. Returns ErrNotFound when no file
// exists and ErrCorrupted when the file cannot be parsed or carries an
// unexpected schema version.
func (s *Store) Load(key string, v interface{}) error {
	path := s.path(key)
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("read cache %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupted, key, err)
	}
	if env.Version != schemaVersion {
		return fmt.Errorf("%w: %s: schema version %d, want %d", ErrCorrupted, key, env.Version, schemaVersion)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupted, key, err)
	}

	s.logger.Debug("loaded cache", zap.String("key", key), zap.Time("saved_at", env.SavedAt))
	return nil
}

// Save overwrites the cache file for key atomically: the new content is
// written to a temp file in the same directory and renamed over the old
// file, so an interrupted write never corrupts a previously valid cache.
func (s *Store) Save(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache %s: %w", key, err)
	}
	raw, err := json.Marshal(envelope{
		Version: schemaVersion,
		SavedAt: time.Now().UTC(),
		Data:    data,
	})
	if err != nil {
		return fmt.Errorf("marshal cache envelope %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync cache %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename cache %s: %w", key, err)
	}

	s.logger.Debug("saved cache", zap.String("key", key), zap.Int("bytes", len(raw)))
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
