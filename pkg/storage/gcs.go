package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
)

// GCSStore writes objects to a Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
}

func NewGCSStore(ctx context.Context, bucket string, logger *slog.Logger) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs storage needs a bucket name")
	}
	c, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	logger.Info("initialized gcs storage", "bucket", bucket)
	return &GCSStore{client: c, bucket: bucket, logger: logger.With("component", "storage.gcs")}, nil
}

// Put uploads data and grants public read. Buckets with uniform access reject
// object ACLs; that failure is logged and the object is still returned.
func (s *GCSStore) Put(ctx context.Context, key string, data []byte, mimeType string) (Object, error) {
	obj := s.client.Bucket(s.bucket).Object(key)

	w := obj.NewWriter(ctx)
	w.ContentType = mimeType
	w.CacheControl = "public, max-age=86400"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return Object{}, fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("failed to close object writer: %w", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		s.logger.Warn("could not make object public", "key", key, "error", err)
	}

	s.logger.Info("uploaded object", "key", key, "bytes", len(data))
	return Object{
		Key: key,
		URI: fmt.Sprintf("gs://%s/%s", s.bucket, key),
		URL: fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key),
	}, nil
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object: %w", err)
	}
	return data, r.Attrs.ContentType, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ Store = (*GCSStore)(nil)
