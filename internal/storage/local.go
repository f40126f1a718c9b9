package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	apperrors "go-rembg-clean/internal/errors"
)

// LocalStore writes outputs to the filesystem below a root directory
type LocalStore struct {
	root string
}

// NewLocalStore creates a filesystem store rooted at root
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Put writes the file, creating parent directories
func (s *LocalStore) Put(_ context.Context, key string, data []byte) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewWriteError(fmt.Sprintf("failed to create directory for %s", key), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.NewWriteError(fmt.Sprintf("failed to write %s", key), err)
	}
	return nil
}

// Exists reports whether the file is already present
func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
