package schema

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// lookupCache is the TTL-and-size-bounded map keyed by schema name
// described in spec §4.1, backed by hashicorp/golang-lru/v2's
// expirable variant so both bounds (size and time) are enforced by the
// library rather than hand-rolled eviction bookkeeping.
type lookupCache struct {
	lru *expirable.LRU[string, Schema]
}

func newLookupCache(size int, ttl time.Duration) *lookupCache {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &lookupCache{lru: expirable.NewLRU[string, Schema](size, nil, ttl)}
}

func (c *lookupCache) get(name string) (Schema, bool) {
	return c.lru.Get(name)
}

func (c *lookupCache) set(name string, sc Schema) {
	c.lru.Add(name, sc)
}

func (c *lookupCache) delete(name string) {
	c.lru.Remove(name)
}
