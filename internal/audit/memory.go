package audit

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps attempts in memory. Used when no database path is
// configured, and in tests.
type MemoryStore struct {
	mu       sync.Mutex
	attempts []Attempt

	// RecordError, if set, will be returned by Record.
	RecordError error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends a.
func (m *MemoryStore) Record(ctx context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordError != nil {
		return m.RecordError
	}
	m.attempts = append(m.attempts, a)
	return nil
}

// Recent returns up to limit attempts, newest first.
func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	m.mu.Lock()
	out := make([]Attempt, 0, len(m.attempts))
	for i := len(m.attempts) - 1; i >= 0; i-- {
		out = append(out, m.attempts[i])
	}
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns every attempt in insertion order.
func (m *MemoryStore) All() []Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Attempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}
