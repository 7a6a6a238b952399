package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"hireshop/internal/domain"
)

// FileStore keeps every key in a single JSON file, rewritten atomically on
// each mutation. It is the default backend and mirrors the durability of the
// browser's local storage: last writer wins, no cross-process locking.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// NewFile opens (or creates) the snapshot file at path. An unreadable or
// malformed file is treated as empty rather than an error: persisted state
// must never prevent the client from starting.
func NewFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("state file path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	s := &FileStore{path: path, data: make(map[string]json.RawMessage)}
	raw, err := os.ReadFile(path)
	if err == nil {
		var loaded map[string]json.RawMessage
		if json.Unmarshal(raw, &loaded) == nil && loaded != nil {
			s.data = loaded
		}
	}
	return s, nil
}

func (s *FileStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *FileStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make(json.RawMessage, len(value))
	copy(stored, value)
	s.data[key] = stored
	return s.flushLocked()
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flushLocked()
}

// flushLocked writes the whole map via a temp file and rename so a crash
// mid-write cannot leave a truncated snapshot behind.
func (s *FileStore) flushLocked() error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
