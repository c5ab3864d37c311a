package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LineageCache namespaces a Backend for lineage payloads keyed by
// document id, and implements the "pending invalidation" set of spec
// §4.3: a document id added to the set forces Get to return empty and
// Set to be a no-op until the set is cleared, so a single logical
// lineage operation touching N records can flush them all before
// taking reads again.
type LineageCache struct {
	ns *Namespace

	pendingMu sync.Mutex
	pending   map[uuid.UUID]struct{}
}

// NewLineageCache wraps backend under the "lineage" prefix.
func NewLineageCache(backend Backend, defaultTTL time.Duration) *LineageCache {
	return &LineageCache{
		ns:      NewNamespace(backend, "lineage", defaultTTL),
		pending: make(map[uuid.UUID]struct{}),
	}
}

// Invalidate marks ids pending-invalidation and deletes their cached
// entries. It is held for the duration of a multi-record invalidation
// (spec §5: "taken under a dedicated lock and MUST be held for the
// duration of a multi-record invalidation"), so callers should invoke
// it once per logical operation with every affected id, not once per
// id.
func (c *LineageCache) Invalidate(ids ...uuid.UUID) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	for _, id := range ids {
		c.pending[id] = struct{}{}
	}
	ctx := context.Background()
	for _, id := range ids {
		_ = c.ns.Delete(ctx, id.String())
	}
	for _, id := range ids {
		delete(c.pending, id)
	}
}

// Get returns the cached payload for id, or (nil, false) if absent,
// expired, evicted, or currently pending invalidation.
func (c *LineageCache) Get(ctx context.Context, id uuid.UUID) ([]byte, bool) {
	c.pendingMu.Lock()
	_, blocked := c.pending[id]
	c.pendingMu.Unlock()
	if blocked {
		return nil, false
	}

	val, ok, err := c.ns.Get(ctx, id.String())
	if err != nil || !ok {
		return nil, false
	}
	return val, true
}

// Set stores payload for id unless id is pending invalidation, in
// which case it is a silent no-op per the consistency rule.
func (c *LineageCache) Set(ctx context.Context, id uuid.UUID, payload []byte) error {
	c.pendingMu.Lock()
	_, blocked := c.pending[id]
	c.pendingMu.Unlock()
	if blocked {
		return nil
	}
	return c.ns.Set(ctx, payload, id.String())
}
