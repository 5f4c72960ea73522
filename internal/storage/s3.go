package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/controltower/backend-go/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Client implements ObjectStorage for any S3-compatible service.
type S3Client struct {
	client *minio.Client
	bucket string
}

// NewS3Client builds a client from the archive configuration.
func NewS3Client(cfg config.ArchiveConfig) (*S3Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("archive endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("archive credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket must be provided")
	}

	endpoint, secure := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("archive client: %w", err)
	}

	return &S3Client{client: client, bucket: cfg.Bucket}, nil
}

// normalizeEndpoint strips a scheme from the endpoint; an explicit scheme wins
// over the UseSSL flag.
func normalizeEndpoint(raw string, useSSL bool) (string, bool) {
	switch {
	case strings.HasPrefix(raw, "https://"):
		return strings.TrimPrefix(raw, "https://"), true
	case strings.HasPrefix(raw, "http://"):
		return strings.TrimPrefix(raw, "http://"), false
	default:
		return strings.TrimPrefix(raw, "//"), useSSL
	}
}

// ListObjects lists all objects under a prefix.
func (c *S3Client) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	results := make([]ObjectInfo, 0)
	for object := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("archive list failed: %w", object.Err)
		}
		results = append(results, ObjectInfo{Key: object.Key, Size: object.Size})
	}
	return results, nil
}

// DownloadObject downloads an object to the provided destination path.
func (c *S3Client) DownloadObject(ctx context.Context, key, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", destPath, err)
	}
	if err := c.client.FGetObject(ctx, c.bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("archive download %s: %w", key, err)
	}
	return nil
}

// UploadObject stores data as a JSON object.
func (c *S3Client) UploadObject(ctx context.Context, key string, data []byte) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("archive upload %s: %w", key, err)
	}
	return nil
}

var _ ObjectStorage = (*S3Client)(nil)
