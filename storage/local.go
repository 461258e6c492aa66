package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/giygas/medcodes-scraper/apperrors"
	"github.com/giygas/medcodes-scraper/interfaces"
	"github.com/giygas/medcodes-scraper/logging"
)

// Compile-time check to ensure LocalStorage implements Storage interface
var _ interfaces.Storage = (*LocalStorage)(nil)

// LocalStorage writes artifacts into a directory
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates dir if needed and returns a storage writing into it
func NewLocalStorage(dir string) (*LocalStorage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid output directory "+dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, apperrors.NewStorageError(abs, fmt.Errorf("failed to create output directory: %w", err))
	}
	return &LocalStorage{dir: abs}, nil
}

// Dir returns the absolute output directory
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Store writes data to dir/name and returns its file:// location.
// An existing file with the same name is replaced.
func (s *LocalStorage) Store(ctx context.Context, data []byte, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.NewStorageError(name, err)
	}
	if name == "" || filepath.Base(name) != name {
		return "", apperrors.NewStorageError(name, fmt.Errorf("invalid artifact name"))
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", apperrors.NewStorageError(name, err)
	}

	logging.Info("Stored artifact", "path", path, "size", len(data))
	return "file://" + path, nil
}

// Delete removes dir/name
func (s *LocalStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStorageError(name, err)
	}
	if name == "" || filepath.Base(name) != name {
		return apperrors.NewStorageError(name, fmt.Errorf("invalid artifact name"))
	}

	path := filepath.Join(s.dir, name)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewStorageError(name, err)
	}
	logging.Info("Removed artifact", "path", path)
	return nil
}
