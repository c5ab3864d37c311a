// Package cache implements the namespaced, TTL-bounded cache layer
// shared by the lineage store (document payload cache) and the
// enrichment stages (per-function memoisation of embeddings and
// summaries), per spec §4.3.
package cache

import (
	"context"
	"time"
)

// Backend is the four-method contract every cache implementation must
// satisfy; a map-backed in-memory implementation is sufficient for
// tests (spec §9).
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Namespace builds keys of the form "prefix:rest" so the two logical
// namespaces spec §4.3 describes (lineage payloads keyed by document
// id, and per-function memoisation keyed by (prefix, function_name,
// arg_hash)) can share one backend without key collisions.
type Namespace struct {
	backend    Backend
	prefix     string
	defaultTTL time.Duration
}

// NewNamespace wraps a backend with a fixed key prefix and default TTL.
func NewNamespace(backend Backend, prefix string, defaultTTL time.Duration) *Namespace {
	return &Namespace{backend: backend, prefix: prefix, defaultTTL: defaultTTL}
}

func (n *Namespace) key(parts ...string) string {
	k := n.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// Get returns empty if the key is missing, expired, or evicted; those
// three cases are indistinguishable to callers, matching the observable
// contract in spec §4.3.
func (n *Namespace) Get(ctx context.Context, parts ...string) ([]byte, bool, error) {
	return n.backend.Get(ctx, n.key(parts...))
}

// Set stores a value under the default TTL. Use SetTTL to override it
// per call, matching spec §4.3 ("when supplied per-call, the per-call
// value wins").
func (n *Namespace) Set(ctx context.Context, value []byte, parts ...string) error {
	return n.backend.Set(ctx, n.key(parts...), value, n.defaultTTL)
}

// SetTTL stores a value under an explicit TTL.
func (n *Namespace) SetTTL(ctx context.Context, value []byte, ttl time.Duration, parts ...string) error {
	return n.backend.Set(ctx, n.key(parts...), value, ttl)
}

// Delete removes a key.
func (n *Namespace) Delete(ctx context.Context, parts ...string) error {
	return n.backend.Delete(ctx, n.key(parts...))
}
