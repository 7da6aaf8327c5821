package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps objects on the local filesystem; gin serves BaseDir at
// the public URL prefix.
type LocalStorage struct {
	baseDir   string
	publicURL string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(baseDir, publicURL string) (*LocalStorage, error) {
	dir := strings.TrimSpace(baseDir)
	if dir == "" {
		dir = "data/uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	prefix := strings.TrimRight(strings.TrimSpace(publicURL), "/")
	if prefix == "" {
		prefix = "/uploads"
	}

	return &LocalStorage{baseDir: dir, publicURL: prefix}, nil
}

// BaseDir returns the directory objects are written to.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// PublicPrefix returns the URL prefix objects are served under.
func (s *LocalStorage) PublicPrefix() string {
	return s.publicURL
}

// Save writes the object atomically via a temp file and rename.
func (s *LocalStorage) Save(ctx context.Context, key string, r io.Reader, _ string) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("move object into place: %w", err)
	}
	return nil
}

// Delete removes the object; a missing file is ignored.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(clean))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// URL returns the public path for key.
func (s *LocalStorage) URL(key string) string {
	return s.publicURL + "/" + strings.TrimLeft(key, "/")
}
