package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidKey is returned for keys that are empty or escape the bucket root.
var ErrInvalidKey = errors.New("invalid storage key")

// Storage is the bucket holding compressed gallery images.
type Storage interface {
	// Save stores the object under key.
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	// Delete removes the object. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for key.
	URL(key string) string
}

// Config holds storage configuration
type Config struct {
	Driver    string // local, s3
	LocalDir  string
	PublicURL string
	Bucket    string
	Region    string
	Endpoint  string // S3-compatible endpoint such as Cloudflare R2
	AccessKey string
	SecretKey string
}

// New creates the storage backend named by cfg.Driver.
func New(cfg Config) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "local":
		return NewLocalStorage(cfg.LocalDir, cfg.PublicURL)
	case "s3", "r2":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func cleanKey(key string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", ErrInvalidKey
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == ".." || segment == "." || segment == "" {
			return "", ErrInvalidKey
		}
	}
	return trimmed, nil
}
