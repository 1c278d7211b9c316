package storage

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bee-finder/pkg/config"
)

func TestObjectPath(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	re := regexp.MustCompile(`^images/1718000000123-[0-9a-f]{8}\.png$`)

	a := ImagePath(now, "image/png")
	b := ImagePath(now, "image/png")
	require.Regexp(t, re, a)
	require.Regexp(t, re, b)
	require.NotEqual(t, a, b)

	require.Regexp(t, `^videos/1718000000123-[0-9a-f]{8}\.mp4$`, VideoPath(now, "video/mp4"))
	require.Regexp(t, `\.jpeg$`, ImagePath(now, ""))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	data := []byte("bee")
	obj, err := s.Put(ctx, "images/1-abcdef12.png", data, "image/png")
	require.NoError(t, err)
	require.Equal(t, Object{Key: "images/1-abcdef12.png", URL: "/media/images/1-abcdef12.png"}, obj)

	data[0] = 'x'
	got, mime, err := s.Get(ctx, "images/1-abcdef12.png")
	require.NoError(t, err)
	require.Equal(t, []byte("bee"), got)
	require.Equal(t, "image/png", mime)
	require.Equal(t, 1, s.Len())

	_, _, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMinIOURLs(t *testing.T) {
	require.Equal(t, "minio.local:9000", sanitizeEndpoint("http://minio.local:9000/some/path"))
	require.Equal(t, "r2.example.com", sanitizeEndpoint(" https://r2.example.com "))
	require.Equal(t, "https://r2.example.com", baseURL("https://r2.example.com/"))
	require.Equal(t, "http://localhost:9000", baseURL("localhost:9000"))

	s, err := NewMinIOStore("http://localhost:9000", "key", "secret", "bees", "us-east-1", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/bees/images/1-a.png", s.publicURL("images/1-a.png"))
}

func TestPublicPrefix(t *testing.T) {
	require.Equal(t, "https://storage.googleapis.com/bees/", PublicPrefix(config.StorageConfig{Backend: config.StorageGCS, BucketName: "bees"}))
	require.Equal(t, "http://localhost:9000/bees/", PublicPrefix(config.StorageConfig{
		Backend:    config.StorageMinIO,
		BucketName: "bees",
		MinIO:      config.MinIOConfig{Endpoint: "localhost:9000/"},
	}))
	require.Empty(t, PublicPrefix(config.StorageConfig{Backend: config.StorageMemory}))
}

func TestNewPicksBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := New(context.Background(), config.StorageConfig{Backend: config.StorageMemory}, logger)
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = New(context.Background(), config.StorageConfig{
		Backend:    config.StorageMinIO,
		BucketName: "bees",
		MinIO:      config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"},
	}, logger)
	require.NoError(t, err)
	require.IsType(t, &MinIOStore{}, s)

	_, err = New(context.Background(), config.StorageConfig{Backend: "floppy"}, logger)
	require.Error(t, err)
}
