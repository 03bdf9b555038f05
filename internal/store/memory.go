package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. The zero value is not usable; call NewMemory.
type Memory struct {
	mu      sync.RWMutex
	sources map[string]string
	loads   []LoadRecord
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sources: make(map[string]string),
		now:     time.Now,
	}
}

func (m *Memory) SaveSource(_ context.Context, sessionID, source string) error {
	m.mu.Lock()
	m.sources[sessionID] = source
	m.mu.Unlock()
	return nil
}

func (m *Memory) LastSource(_ context.Context, sessionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sources[sessionID], nil
}

func (m *Memory) ClearSource(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sources, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *Memory) RecordLoad(_ context.Context, rec LoadRecord) (LoadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.CreatedAt = m.now().UTC()
	m.loads = append(m.loads, rec)
	return rec, nil
}

func (m *Memory) RecentLoads(_ context.Context, sessionID string, limit int) ([]LoadRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]LoadRecord, 0)
	for i := len(m.loads) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if m.loads[i].SessionID == sessionID {
			out = append(out, m.loads[i])
		}
	}
	return out, nil
}

func (m *Memory) PurgeLoads(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.loads[:0]
	var purged int64
	for _, rec := range m.loads {
		if rec.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, rec)
	}
	m.loads = kept
	return purged, nil
}
