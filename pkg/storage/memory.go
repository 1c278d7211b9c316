package storage

import (
	"context"
	"sync"
)

// MediaPrefix is where the HTTP API serves MemoryStore objects.
const MediaPrefix = "/media/"

// MemoryStore keeps blobs in memory. Useful for tests and local dev.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]storedBlob
}

type storedBlob struct {
	data     []byte
	mimeType string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]storedBlob)}
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, mimeType string) (Object, error) {
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = storedBlob{data: cp, mimeType: mimeType}
	return Object{Key: key, URL: MediaPrefix + key}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[key]
	if !ok {
		return nil, "", ErrNotFound
	}
	return blob.data, blob.mimeType, nil
}

// Len reports how many objects are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

var _ Store = (*MemoryStore)(nil)
