// Package storage keeps export files either on the local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/tetebueno/dawarich/internal/config"
)

var ErrNotFound = errors.New("object not found")

// Store writes, reads and removes objects by slash-separated key,
// e.g. "exports/export_from_2024-01-01_to_2024-01-31.json".
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New picks MinIO when an endpoint is configured and the local public
// directory otherwise.
func New(ctx context.Context, cfg config.Config) (Store, error) {
	if cfg.MinioEndpoint != "" {
		return NewMinioStore(ctx, MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return NewLocalStore(cfg.PublicDir), nil
}
