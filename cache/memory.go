package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryBackend is the map-backed in-memory cache of spec §9, built on
// hashicorp/golang-lru/v2 for size-bounded eviction with a lazily
// checked expiry alongside each entry (the LRU library itself has no
// notion of TTL).
type MemoryBackend struct {
	mu  sync.Mutex
	lru *lru.Cache[string, memoryEntry]
}

// NewMemoryBackend creates an in-memory backend holding at most
// maxEntries keys.
func NewMemoryBackend(maxEntries int) *MemoryBackend {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	c, _ := lru.New[string, memoryEntry](maxEntries)
	return &MemoryBackend{lru: c}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		m.lru.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	m.lru.Add(key, memoryEntry{value: append([]byte(nil), value...), expires: expires})
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Remove(key)
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Purge()
	return nil
}
