// Package cache provides the JSON file-backed persistent key/value store the
// UI uses to survive restarts (map layers, panel layouts, feed cursors).
//
// The store is a single pretty-printed JSON object in the app data
// directory. It is small and written rarely, so every write re-reads,
// mutates and atomically replaces the whole file.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/koala73/worldmonitor-desktop/internal/logging"
)

// FileName is the cache file name inside the app data directory.
const FileName = "persistent-cache.json"

// Store is a file-backed JSON key/value store.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store at the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Read returns the raw JSON value for a key. A missing file or missing key
// is reported through the ok return, not as an error.
func (s *Store) Read(key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.load()
	if err != nil {
		return nil, false, err
	}
	value, ok := root[key]
	return value, ok, nil
}

// Write stores a JSON value under a key. The value must be valid JSON.
func (s *Store) Write(key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("invalid cache payload JSON for key %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.load()
	if err != nil {
		return err
	}
	root[key] = value

	return s.save(root)
}

// Delete removes a key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := root[key]; !ok {
		return nil
	}
	delete(root, key)

	return s.save(root)
}

// Keys returns the stored keys.
func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(root))
	for k := range root {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *Store) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, fmt.Errorf("read cache store %s: %w", s.path, err)
	}

	root := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &root); err != nil {
		// A corrupt store is treated as empty rather than wedging the UI.
		logging.Warn("corrupt cache store, starting fresh", "path", s.path, "error", err)
		return make(map[string]json.RawMessage), nil
	}
	return root, nil
}

func (s *Store) save(root map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize cache store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache store %s: %w", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit cache store %s: %w", s.path, err)
	}
	return nil
}
