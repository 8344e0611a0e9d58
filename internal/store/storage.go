package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Storage is a small string key/value store. Writes touching several keys
// are applied all-or-nothing.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, kv map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the storage backend named by backend rooted at dir.
func Open(backend, dir string) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStorage(filepath.Join(dir, "session.json")), nil
	case BackendSQLite:
		return NewSQLiteStorage(filepath.Join(dir, "session.sqlite")), nil
	case BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q (want file|sqlite|memory)", backend)
	}
}

type MemoryStorage struct {
	mu   sync.Mutex
	m    map[string]string
	gets int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{m: map[string]string{}}
}

func (s *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemoryStorage) SetMany(_ context.Context, kv map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range kv {
		s.m[k] = v
	}
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.m, k)
	}
	return nil
}

// Reads returns how many Get calls the store has served.
func (s *MemoryStorage) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}
