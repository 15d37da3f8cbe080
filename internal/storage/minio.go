package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/config"
)

const (
	bucketCheckTimeout = 5 * time.Second
	defaultContentType = "application/octet-stream"
	// image keys are never reused, so clients may cache them for good
	imageCacheControl = "public, max-age=31536000, immutable"
)

// MinIOStorage keeps images as objects in one MinIO bucket, keyed exactly
// like the filesystem layout.
type MinIOStorage struct {
	client *minio.Client
	bucket string
}

// NewMinIOStorage connects and creates the bucket on first use.
func NewMinIOStorage(ctx context.Context, cfg config.MinIOConfig) (*MinIOStorage, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio: MINIO_ENDPOINT and MINIO_BUCKET are required")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	if err := ensureBucket(ctx, mc, cfg.Bucket); err != nil {
		return nil, err
	}
	return &MinIOStorage{client: mc, bucket: cfg.Bucket}, nil
}

func ensureBucket(ctx context.Context, mc *minio.Client, bucket string) error {
	ctx, cancel := context.WithTimeout(ctx, bucketCheckTimeout)
	defer cancel()
	exists, err := mc.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("minio bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("minio create bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *MinIOStorage) Name() string { return "minio" }

func (s *MinIOStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: imageCacheControl,
	})
	if err != nil {
		return fmt.Errorf("minio put %s: %w", key, err)
	}
	return nil
}

// Delete removes the object; MinIO treats missing keys as success.
func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio delete %s: %w", key, err)
	}
	return nil
}
