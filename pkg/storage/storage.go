// Package storage persists generated media and hands back public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bee-finder/pkg/asset"
	"bee-finder/pkg/config"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("object not found")

// Object describes a stored blob.
type Object struct {
	Key string
	// URI is the provider-native address (gs://...), when there is one.
	URI string
	// URL is publicly readable.
	URL string
}

// Store is implemented by every backend.
type Store interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (Object, error)
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// ObjectPath builds "<prefix>/<unix-millis>-<8 char suffix>.<ext>".
func ObjectPath(prefix string, now time.Time, mimeType string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%d-%s.%s", prefix, now.UnixMilli(), suffix, asset.Extension(mimeType))
}

// ImagePath is ObjectPath under images/.
func ImagePath(now time.Time, mimeType string) string {
	return ObjectPath("images", now, mimeType)
}

// VideoPath is ObjectPath under videos/.
func VideoPath(now time.Time, mimeType string) string {
	return ObjectPath("videos", now, mimeType)
}

// PublicPrefix is the URL prefix every object of the configured backend is published under.
// The memory backend publishes under MediaPrefix and returns "".
func PublicPrefix(cfg config.StorageConfig) string {
	switch cfg.Backend {
	case config.StorageGCS:
		return fmt.Sprintf("https://storage.googleapis.com/%s/", cfg.BucketName)
	case config.StorageMinIO:
		return fmt.Sprintf("%s/%s/", baseURL(cfg.MinIO.Endpoint), cfg.BucketName)
	default:
		return ""
	}
}

// New picks the backend named in cfg.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case config.StorageGCS:
		return NewGCSStore(ctx, cfg.BucketName, logger)
	case config.StorageMinIO:
		return NewMinIOStore(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.BucketName, cfg.MinIO.Region, logger)
	case config.StorageMemory, "":
		logger.Warn("using in-memory media storage; generated media is lost on restart")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
