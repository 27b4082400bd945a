// Package registry implements the bidirectional mapping between entity
// keys and cache keys that drives precise invalidation: given an entity
// that changed, which cache entries must go.
//
// Both directions live behind one mutex so register/unregister are atomic
// with respect to each other — the same discipline this codebase applies
// to its other shared maps, generalized from a single map to a pair that
// must stay mutually consistent.
package registry

import (
	"sync"

	"github.com/otero-labs/contentcache/internal/cachekeys"
)

// Registry maintains CacheKey -> Set<EntityKey> and its reciprocal
// EntityKey -> Set<CacheKey>.
type Registry struct {
	mu            sync.Mutex
	keyToEntities map[cachekeys.CacheKey]map[cachekeys.EntityKey]struct{}
	entityToKeys  map[cachekeys.EntityKey]map[cachekeys.CacheKey]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		keyToEntities: make(map[cachekeys.CacheKey]map[cachekeys.EntityKey]struct{}),
		entityToKeys:  make(map[cachekeys.EntityKey]map[cachekeys.CacheKey]struct{}),
	}
}

// Register inserts key -> entities and adds key into each entity's key
// set. An empty entity set is allowed: such a key is never invalidated
// except by a direct, typed code path (e.g. singleton invalidation).
func (r *Registry) Register(key cachekeys.CacheKey, entities map[cachekeys.EntityKey]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.keyToEntities[key]
	if !ok {
		set = make(map[cachekeys.EntityKey]struct{}, len(entities))
		r.keyToEntities[key] = set
	}
	for e := range entities {
		set[e] = struct{}{}

		keys, ok := r.entityToKeys[e]
		if !ok {
			keys = make(map[cachekeys.CacheKey]struct{})
			r.entityToKeys[e] = keys
		}
		keys[key] = struct{}{}
	}
}

// KeysForEntity returns a copied snapshot of the cache keys currently
// depending on the given entity. Never a live reference.
func (r *Registry) KeysForEntity(entity cachekeys.EntityKey) []cachekeys.CacheKey {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, ok := r.entityToKeys[entity]
	if !ok {
		return nil
	}
	out := make([]cachekeys.CacheKey, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	return out
}

// Unregister removes the key from both directions, pruning any entity
// bucket left empty.
func (r *Registry) Unregister(key cachekeys.CacheKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked(key)
}

func (r *Registry) unregisterLocked(key cachekeys.CacheKey) {
	entities, ok := r.keyToEntities[key]
	if !ok {
		return
	}
	delete(r.keyToEntities, key)

	for e := range entities {
		keys, ok := r.entityToKeys[e]
		if !ok {
			continue
		}
		delete(keys, key)
		if len(keys) == 0 {
			delete(r.entityToKeys, e)
		}
	}
}

// Len returns the number of distinct cache keys currently registered.
// Used by tests to check how many keys remain registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keyToEntities)
}
