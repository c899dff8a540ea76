package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/bookshelf-app/server/config"
)

// FromConfig builds the configured backend and makes sure its bucket exists.
// It returns nil when no backend is configured.
func FromConfig(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "minio":
		backend, err = NewMinioClient(cfg.Minio, cfg.Bucket)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	s := NewStorage(backend)
	if err := s.EnsureBucket(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return s, nil
}
