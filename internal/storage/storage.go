// Package storage persists uploaded photo bytes under generated keys of the
// form "<owner>/<name>".
package storage

import (
	"context" // Request-scoped cancellation
	"errors"  // Sentinel errors
	"io"      // Streaming photo bytes
	"path"    // Slash-separated key handling
	"strings" // String helpers
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for keys that are not a clean relative path.
var ErrInvalidKey = errors.New("invalid storage key")

// Storage is the photo byte store.
type Storage interface {
	// Put writes r under key and returns the number of bytes written.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects absolute keys, parent references and empty segments.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
