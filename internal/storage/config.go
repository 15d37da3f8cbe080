package storage

import (
	"context"
	"fmt"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/config"
)

// New builds the backend selected by MEDIA_BACKEND.
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Media.Backend {
	case "", "fs":
		return NewFSStorage(cfg.Media.BaseDir), nil
	case "minio":
		return NewMinIOStorage(ctx, cfg.MinIO)
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	}
	return nil, fmt.Errorf("unknown media backend %q", cfg.Media.Backend)
}
