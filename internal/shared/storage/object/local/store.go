// Package local stores document blobs on the local filesystem. Used in dev and tests.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"docqa-backend/internal/shared/storage/object"
)

var errInvalidKey = errors.New("invalid storage key")

// Store implements ObjectStore under a base directory.
type Store struct {
	baseDir string
}

// New creates a new local object store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Save streams r into a temp file next to its final location and renames it into
// place, so a concurrent Open never observes a partial blob.
func (s *Store) Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (object.Stored, error) {
	if err := ctx.Err(); err != nil {
		return object.Stored{}, err
	}
	key, err := object.NewKey(ownerID, fileName)
	if err != nil {
		return object.Stored{}, err
	}
	mimeType, body, err := object.Sniff(r)
	if err != nil {
		return object.Stored{}, err
	}

	dest, err := s.resolve(key)
	if err != nil {
		return object.Stored{}, err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return object.Stored{}, fmt.Errorf("local store mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return object.Stored{}, fmt.Errorf("local store temp file: %w", err)
	}
	written, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return object.Stored{}, fmt.Errorf("local store write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return object.Stored{}, fmt.Errorf("local store rename %s: %w", key, err)
	}
	return object.Stored{Key: key, SizeBytes: written, MimeType: mimeType}, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, storageKey)
	case err != nil:
		return nil, fmt.Errorf("local store open %s: %w", storageKey, err)
	}
	return f, nil
}

// Delete removes a stored object. Missing objects are not an error.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local store remove %s: %w", storageKey, err)
	}
	return nil
}

// resolve maps a slash-separated key to a path that stays under baseDir.
func (s *Store) resolve(storageKey string) (string, error) {
	if strings.TrimSpace(storageKey) == "" {
		return "", errInvalidKey
	}
	clean := filepath.Clean(filepath.FromSlash(storageKey))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errInvalidKey, storageKey)
	}
	return filepath.Join(s.baseDir, clean), nil
}

var _ object.ObjectStore = (*Store)(nil)
