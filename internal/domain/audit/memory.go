package audit

import (
	"context"
	"sync"
)

// MemoryStore keeps events in process, newest last.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(ctx context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *MemoryStore) Count(ctx context.Context, filter Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, evt := range m.events {
		if filter.matches(evt) {
			total++
		}
	}
	return total, nil
}

// List returns matching events newest first.
func (m *MemoryStore) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	skipped := 0
	for i := len(m.events) - 1; i >= 0; i-- {
		evt := m.events[i]
		if !filter.matches(evt) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, evt)
	}
	return out, nil
}
