package countdown

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	deadline  time.Time
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Entries past their TTL are treated as
// absent and removed lazily.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty store. A nil clock uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, key string) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(key)
	if !ok {
		return time.Time{}, false, nil
	}
	return e.deadline, true, nil
}

// SetIfAbsent implements Store.
func (m *MemoryStore) SetIfAbsent(ctx context.Context, key string, deadline time.Time, ttl time.Duration) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.live(key); ok {
		return e.deadline, nil
	}
	m.entries[key] = memoryEntry{deadline: deadline, expiresAt: m.now().Add(ttl)}
	return deadline, nil
}

// live returns the entry for key if it has not expired. Caller holds mu.
func (m *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

var _ Store = (*MemoryStore)(nil)
