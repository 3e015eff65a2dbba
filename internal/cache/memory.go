package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryCache is a process local Cache. A zero TTL keeps entries forever.
type MemoryCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]memoryEntry
	now  func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:  ttl,
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok {
		return "", false
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		delete(m.data, key)
		return "", false
	}
	return entry.value, true
}

func (m *MemoryCache) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.data[key] = entry
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *MemoryCache) Close() error {
	return nil
}
