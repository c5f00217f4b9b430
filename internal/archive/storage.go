// Package archive persists rendered timeline documents to blob storage
// so the dashboard's history survives database resets and the polling
// jobs can append to a running record.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/webcompat/ochazuke/pkg/config"
)

// StorageClient abstracts blob storage for timeline documents.
type StorageClient interface {
	PutTimeline(ctx context.Context, category string, data []byte) error
	GetTimeline(ctx context.Context, category string) ([]byte, error)
}

// NewFromConfig builds the storage backend named by the archive
// configuration.
func NewFromConfig(ctx context.Context, cfg config.ArchiveConfig) (StorageClient, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalStorage(cfg.LocalPath), nil
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
	case "gcs":
		return NewGCSStorage(ctx, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}

// LocalStorage implements StorageClient using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(category string) string {
	return filepath.Join(s.BaseDir, category, category+"-timeline.json")
}

// PutTimeline stores a category's timeline document.
func (s *LocalStorage) PutTimeline(_ context.Context, category string, data []byte) error {
	path := s.path(category)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// GetTimeline retrieves a category's timeline document.
func (s *LocalStorage) GetTimeline(_ context.Context, category string) ([]byte, error) {
	return os.ReadFile(s.path(category))
}
