// Package storage archives retained clips so they survive the recorder's
// temporary directory. Two backends are provided: [Local] for a directory on
// disk and [S3Store] for Amazon S3 or any S3-compatible object store.
//
// Keys are forward-slash separated and relative to the store root. A key may
// not be empty, absolute, or escape the root with "..".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for keys that are empty, absolute, or that climb
// out of the store root.
var ErrInvalidKey = errors.New("storage: invalid key")

// ClipPrefix is the key prefix under which archived clips are placed.
const ClipPrefix = "clips"

// FileStore is a minimal interface for key-addressed file storage.
//
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Put stores body under key, replacing any previous content. The body
	// is read from its current offset to EOF.
	Put(ctx context.Context, key string, body io.ReadSeeker) error

	// Open returns a reader for the content stored under key. The caller
	// must close it. A missing key yields an error wrapping os.ErrNotExist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// ClipKey returns the archive key for a clip recorded at the local path src.
func ClipKey(src string) string {
	return path.Join(ClipPrefix, filepath.Base(src))
}

// Upload copies the local file src into store under key.
func Upload(ctx context.Context, store FileStore, src, key string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("storage: upload %s: %w", src, err)
	}
	defer f.Close()
	if err := store.Put(ctx, key, f); err != nil {
		return fmt.Errorf("storage: upload %s to %s: %w", src, key, err)
	}
	return nil
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
