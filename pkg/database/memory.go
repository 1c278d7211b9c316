package database

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps history in process when Firestore is disabled.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]GenerationRecord
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]GenerationRecord), now: time.Now}
}

func (m *MemoryRepository) SaveGeneration(_ context.Context, rec GenerationRecord) (string, error) {
	rec = prepare(rec, m.now())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *MemoryRepository) UpdateVideoURL(_ context.Context, id, videoURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.VideoURL = videoURL
	m.records[id] = rec
	return nil
}

func (m *MemoryRepository) GetGeneration(_ context.Context, id string) (*GenerationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryRepository) ListGenerations(_ context.Context, limit int) ([]GenerationRecord, error) {
	m.mu.RLock()
	out := make([]GenerationRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
