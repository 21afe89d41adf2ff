// Package snapshot persists the client's local copy of the site data as
// independent keyed JSON blobs.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Keys of the blobs the client keeps.
const (
	KeyPosts    = "posts"
	KeyMembers  = "members"
	KeySettings = "settings"
	KeyTrash    = "trash"
)

var ErrNotFound = errors.New("snapshot not found")

// Store reads and writes keyed blobs. Load returns ErrNotFound for a key that
// was never saved.
type Store interface {
	Load(key string, v any) error
	Save(key string, v any) error
}

// FileStore keeps one <key>.json file per blob under Dir.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, key+".json")
}

func (s *FileStore) Load(key string, v any) error {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Save(key string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	return os.Rename(tmp, s.path(key))
}

// MemoryStore keeps blobs in memory. It is what a client without a writable
// disk uses, and what tests use.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

func (s *MemoryStore) Load(key string, v any) error {
	s.mu.Lock()
	b, ok := s.blobs[key]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(b, v)
}

func (s *MemoryStore) Save(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	s.mu.Lock()
	s.blobs[key] = b
	s.mu.Unlock()
	return nil
}
