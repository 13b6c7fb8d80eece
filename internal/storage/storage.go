// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides object storage backends for uploaded images:
// a local directory, S3-compatible buckets via the AWS SDK v2, and MinIO.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"classifieds/internal/config"
)

// ErrNotExist is returned by Get for a missing object.
var ErrNotExist = errors.New("object does not exist")

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New builds the backend selected by cfg.StorageDriver.
func New(cfg *config.Config) (ObjectStorage, error) {
	switch cfg.StorageDriver {
	case "local":
		return NewLocal(cfg.StorageLocalDir, cfg.StoragePublic)
	case "s3":
		return NewS3(S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.StoragePublic,
		})
	case "minio":
		return NewMinio(MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.StoragePublic,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
