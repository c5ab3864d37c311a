package lineage

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/davidleathers113/indexforge-sub000/cache"
)

// payloadCache is the subset of cache.LineageCache a CachedStore needs;
// declared as an interface so tests can substitute a fake without
// pulling in a real backend.
type payloadCache interface {
	Get(ctx context.Context, id uuid.UUID) ([]byte, bool)
	Set(ctx context.Context, id uuid.UUID, payload []byte) error
}

// CachedStore composes a Manager with a lineage payload cache,
// populating the cache on read-through misses and relying on the
// Manager's Invalidator hook to clear stale entries on write. This is
// the component that makes spec §8's cache invariant observable end to
// end: a cached key either round-trips to the stored record, or it is
// pending invalidation and returns empty.
type CachedStore struct {
	manager *Manager
	cache   payloadCache
}

// NewCachedStore wraps manager with a read-through/write-invalidate
// cache. Pass the same cache instance as manager's Invalidator so
// mutations and reads share the pending-invalidation set.
func NewCachedStore(manager *Manager, c payloadCache) *CachedStore {
	return &CachedStore{manager: manager, cache: c}
}

// Get returns a document's lineage, preferring the cache and falling
// through to the manager (then repopulating the cache) on a miss.
func (s *CachedStore) Get(ctx context.Context, id uuid.UUID) (Snapshot, bool) {
	if payload, ok := s.cache.Get(ctx, id); ok {
		var snap Snapshot
		if err := json.Unmarshal(payload, &snap); err == nil {
			return snap, true
		}
	}

	snap, ok := s.manager.Get(id)
	if !ok {
		return Snapshot{}, false
	}
	if data, err := json.Marshal(snap); err == nil {
		_ = s.cache.Set(ctx, id, data)
	}
	return snap, true
}

// Manager exposes the underlying manager for mutating operations,
// which always go through it so the Invalidator hook fires.
func (s *CachedStore) Manager() *Manager { return s.manager }
