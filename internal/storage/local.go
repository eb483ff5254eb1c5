package storage

import (
	"context"       // Request-scoped cancellation
	"errors"        // Sentinel errors
	"fmt"           // Error wrapping
	"io"            // Streaming photo bytes
	"io/fs"         // Not-exist checks
	"os"            // File system access
	"path/filepath" // OS path handling
)

// LocalStorage keeps objects as files below a root directory. The first key
// segment becomes a per-user folder.
type LocalStorage struct {
	root string // Parent of the per-user folders
}

// NewLocalStorage creates root when missing.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

// Root returns the directory holding all per-user folders.
func (s *LocalStorage) Root() string {
	return s.root
}

// Path resolves key to its location on disk.
func (s *LocalStorage) Path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *LocalStorage) Put(_ context.Context, key string, r io.Reader, _ string) (int64, error) {
	dst, err := s.Path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir %s: %w", filepath.Dir(dst), err)
	}

	// Write to a temp file first so a failed upload never leaves a truncated photo.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("rename %s: %w", key, err)
	}
	return n, nil
}

func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
