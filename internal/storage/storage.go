package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ThumbnailPrefix is the key namespace for derived thumbnails
const ThumbnailPrefix = "thumbs/"

// localStorage implements content storage using the local filesystem.
// Original uploads are append-only: Save refuses to overwrite an existing
// key. Derived artifacts (thumbnails) go through Replace.
type localStorage struct {
	basePath string
}

// NewLocalStorage creates a new localStorage instance
func NewLocalStorage(basePath string) *localStorage {
	return &localStorage{
		basePath: basePath,
	}
}

// generatePath resolves a storage key to a filesystem path under basePath.
// Keys may contain forward slashes for namespacing (e.g. "thumbs/x.png")
// but never path traversal.
func (s *localStorage) generatePath(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.basePath, cleaned), nil
}

// Save writes the content of r under key and returns the number of bytes
// written. Returns an error satisfying os.IsExist / errors.Is(err, os.ErrExist)
// when the key is already taken; the caller re-derives the key and retries.
func (s *localStorage) Save(key string, r io.Reader) (int64, error) {
	path, err := s.generatePath(key)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create storage directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("failed to write content: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to close content file: %w", err)
	}

	return n, nil
}

// Replace writes the content of r under key, overwriting any previous
// content. Only used for derived artifacts such as thumbnails, which may be
// regenerated on task re-delivery.
func (s *localStorage) Replace(key string, r io.Reader) (int64, error) {
	path, err := s.generatePath(key)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create storage directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to write content: %w", err)
	}

	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to close file: %w", err)
	}

	return n, nil
}

// Open opens the content under key for reading
func (s *localStorage) Open(key string) (io.ReadCloser, error) {
	path, err := s.generatePath(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// OpenFile opens the content under key and returns *os.File for use with
// http.ServeContent
func (s *localStorage) OpenFile(key string) (*os.File, error) {
	path, err := s.generatePath(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes the content under key. Deleting an absent key is not an
// error.
func (s *localStorage) Delete(key string) error {
	path, err := s.generatePath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}
