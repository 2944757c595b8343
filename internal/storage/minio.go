package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bowerhall/reconmem/internal/logger"
)

// Images stores image bodies in MinIO. The database only keeps the
// metadata row, keyed by the same sha256 the object is named after.
type Images struct {
	mc     *minio.Client
	bucket string
}

// Config holds MinIO connection settings
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// NewImages creates an image store. It does not contact the server.
func NewImages(cfg Config) (*Images, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio: bucket is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &Images{mc: mc, bucket: cfg.Bucket}, nil
}

// Init creates the bucket if it doesn't exist
func (s *Images) Init(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}

	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
		logger.Info("bucket created", "bucket", s.bucket)
	}

	return nil
}

// Bucket returns the bucket name
func (s *Images) Bucket() string {
	return s.bucket
}

// Put uploads an image body under its digest
func (s *Images) Put(ctx context.Context, digest string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.mc.PutObject(ctx, s.bucket, digest, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", s.bucket, digest, err)
	}

	logger.Debug("image uploaded", "bucket", s.bucket, "digest", digest, "size", len(data))
	return nil
}

// Exists reports whether a body is already stored
func (s *Images) Exists(ctx context.Context, digest string) (bool, error) {
	_, err := s.mc.StatObject(ctx, s.bucket, digest, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, fmt.Errorf("stat %s/%s: %w", s.bucket, digest, err)
}

// Get downloads an image body
func (s *Images) Get(ctx context.Context, digest string) ([]byte, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, digest, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", s.bucket, digest, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", s.bucket, digest, err)
	}

	return data, nil
}

// Delete removes an image body
func (s *Images) Delete(ctx context.Context, digest string) error {
	if err := s.mc.RemoveObject(ctx, s.bucket, digest, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.bucket, digest, err)
	}
	return nil
}

// Healthy checks if MinIO is reachable
func (s *Images) Healthy(ctx context.Context) bool {
	_, err := s.mc.BucketExists(ctx, s.bucket)
	return err == nil
}
