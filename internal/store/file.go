package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
)

// FileStorage keeps all keys in one JSON object on disk. Every write rewrites
// the whole file through a temp file and rename.
type FileStorage struct {
	Path string

	mu sync.Mutex
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{Path: path}
}

func (s *FileStorage) load() (map[string]string, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	m := map[string]string{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		// A corrupted session file is treated as an empty session.
		return map[string]string{}, nil
	}
	return m, nil
}

func (s *FileStorage) save(m map[string]string) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, filepath.Base(s.Path)+".*.tmp", s.Path, b, 0o600)
}

func (s *FileStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

func (s *FileStorage) SetMany(_ context.Context, kv map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	for k, v := range kv {
		m[k] = v
	}
	return s.save(m)
}

func (s *FileStorage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := m[k]; ok {
			delete(m, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(m)
}
