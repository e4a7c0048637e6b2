package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ebook-reader/internal/domain"
)

// FileStore implements domain.BlobStore over one JSON file per key in the
// data directory. Writes go through a temp file and rename so a crash
// mid-write never leaves a torn document behind.
type FileStore struct {
	dir    string
	logger domain.Logger
	mu     sync.Mutex
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string, logger domain.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrKeyNotFound, key)
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorageFailure, key, err)
	}
	return data, nil
}

func (s *FileStore) Put(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorageFailure, key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %v", domain.ErrStorageFailure, key, err)
	}
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
