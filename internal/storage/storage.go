// Package storage keeps agreement attachments and staged uploads behind an
// opaque key so callers never assume a backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nurpe/snowops-agreements/internal/config"
)

var ErrNotFound = errors.New("storage: object not found")

type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

type Storage interface {
	// Save writes content under key and returns the key it was stored at.
	Save(ctx context.Context, key string, content io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Copy duplicates src under dst within the same backend.
func Copy(ctx context.Context, s Storage, src, dst string) (string, error) {
	reader, err := s.Open(ctx, src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer reader.Close()
	return s.Save(ctx, dst, reader)
}

func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3(ctx, cfg.S3)
	case "local", "":
		return NewLocal(cfg.LocalRoot, cfg.PublicURL)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
