package schema

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/davidleathers113/indexforge-sub000/pipelineerr"
)

// Registry stores, versions, and resolves schema definitions. It is
// grounded on the teacher's registry.go mutex+map+JSON-file-persistence
// +singleton shape, generalized from a flat service map to versioned
// schemas with a dependency index and cycle detection.
type Registry struct {
	mu           sync.RWMutex
	storage      *FileStorage
	cache        *lookupCache
	bolt         *BoltMirror
	active       map[string]Schema
	dependencies map[string]map[string]struct{}
}

// NewRegistry creates a registry backed by storage, with an optional
// lookup cache (pass cacheSize<=0 and cacheTTL<=0 to use defaults).
func NewRegistry(storage *FileStorage, cacheSize int, cacheTTL time.Duration) *Registry {
	return &Registry{
		storage:      storage,
		cache:        newLookupCache(cacheSize, cacheTTL),
		active:       make(map[string]Schema),
		dependencies: make(map[string]map[string]struct{}),
	}
}

// WithBoltMirror attaches an optional bbolt-backed fast-lookup mirror
// (--schema-bolt-path) to an existing registry. FileStorage remains
// authoritative; the mirror is consulted before it on Get and updated
// alongside it on Register.
func (r *Registry) WithBoltMirror(m *BoltMirror) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bolt = m
	return r
}

// Register persists schema under its (name, version), updates the
// dependency index, and rejects the change if it would introduce a
// dependency cycle.
func (r *Registry) Register(sc Schema, makeActive, updateDeps bool) error {
	deps, err := extractDependencies(sc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if updateDeps {
		if err := r.checkDependencyCycleLocked(sc.Name, deps); err != nil {
			return err
		}
	}

	if err := r.storage.StoreSchema(sc, makeActive); err != nil {
		return err
	}

	if makeActive {
		r.cache.set(sc.Name, sc)
		r.active[sc.Name] = sc
		if r.bolt != nil {
			_ = r.bolt.Put(sc.Name, sc)
		}
	}
	if updateDeps {
		r.dependencies[sc.Name] = deps
	}
	return nil
}

// Get returns the exact version if given, else the active version,
// checking the in-memory cache, then the optional bbolt mirror, before
// falling through to FileStorage when useCache is true.
func (r *Registry) Get(name string, version *Version, useCache bool) (Schema, error) {
	if useCache && version == nil {
		r.mu.RLock()
		sc, ok := r.cache.get(name)
		mirror := r.bolt
		r.mu.RUnlock()
		if ok {
			return sc, nil
		}
		if mirror != nil {
			if sc, ok := mirror.Get(name); ok {
				r.mu.Lock()
				r.cache.set(name, sc)
				r.mu.Unlock()
				return sc, nil
			}
		}
	}

	r.mu.RLock()
	if version == nil {
		if sc, ok := r.active[name]; ok {
			r.mu.RUnlock()
			return sc, nil
		}
	}
	r.mu.RUnlock()

	sc, err := r.storage.GetSchema(name, version)
	if err != nil {
		return Schema{}, err
	}
	if useCache {
		r.mu.Lock()
		r.cache.set(name, sc)
		r.mu.Unlock()
	}
	return sc, nil
}

// List enumerates schemas, optionally filtered by kind, including
// inactive versions only when includeInactive is true.
func (r *Registry) List(kind *Kind, includeInactive bool) ([]Schema, error) {
	metas, err := r.storage.ListMetadata(kind)
	if err != nil {
		return nil, err
	}
	var out []Schema
	for _, m := range metas {
		if !includeInactive && !m.IsActive {
			continue
		}
		sc, err := r.storage.GetSchema(m.Name, &m.Version)
		if err != nil {
			continue
		}
		out = append(out, sc)
	}
	return out, nil
}

// Dependencies returns the direct dependency set of name.
func (r *Registry) Dependencies(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.dependencies[name]
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Invalidate removes name from the cache and from the active-schema
// mapping.
func (r *Registry) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.delete(name)
	delete(r.active, name)
}

// extractDependencies builds the dependency set of a schema per spec
// §4.1: each schema_ref field's ref_schema (required, else a
// registration error), each array/object field's items_schema if set,
// the parent schema, and each cross-schema validation reference.
func extractDependencies(sc Schema) (map[string]struct{}, error) {
	deps := make(map[string]struct{})
	for fieldName, f := range sc.Fields {
		switch f.Type {
		case TypeSchemaRef:
			if f.RefSchema == "" {
				return nil, pipelineerr.NewValidation("field %q of schema %s is schema_ref but has no ref_schema", fieldName, sc.Name)
			}
			deps[f.RefSchema] = struct{}{}
		case TypeArray, TypeObject:
			if f.ItemsSchema != "" {
				deps[f.ItemsSchema] = struct{}{}
			}
		}
	}
	if sc.ParentSchema != "" {
		deps[sc.ParentSchema] = struct{}{}
	}
	for _, v := range sc.ValidationSchemas {
		deps[v] = struct{}{}
	}
	return deps, nil
}

// checkDependencyCycleLocked runs an iterative worklist DFS (spec §9:
// "do not recurse unbounded") starting from name's proposed dependency
// set against the registry's current dependency map.
func (r *Registry) checkDependencyCycleLocked(name string, deps map[string]struct{}) error {
	visited := []string{name}
	visitedSet := map[string]struct{}{name: {}}

	stack := make([]string, 0, len(deps))
	for d := range deps {
		stack = append(stack, d)
	}
	sort.Strings(stack)

	for len(stack) > 0 {
		depName := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visitedSet[depName]; ok {
			full := append(append([]string(nil), visited...), depName)
			return pipelineerr.NewCycle(strings.Join(full, " -> "))
		}
		visitedSet[depName] = struct{}{}
		visited = append(visited, depName)

		if next, ok := r.dependencies[depName]; ok {
			nextNames := make([]string, 0, len(next))
			for n := range next {
				nextNames = append(nextNames, n)
			}
			sort.Strings(nextNames)
			stack = append(stack, nextNames...)
		}
	}
	return nil
}
