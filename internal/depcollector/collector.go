// Package depcollector provides the request-scoped accumulator of logical
// entities consumed while producing a response. It generalizes the
// context-scoped request-id technique this codebase's HTTP logging
// middleware already uses (a private context key carrying a handle) from a
// single string to a mutex-protected set of entity keys.
package depcollector

import (
	"context"
	"sync"

	"github.com/otero-labs/contentcache/internal/cachekeys"
)

type contextKey struct{}

var collectorKey = contextKey{}

// handle is the mutable set installed into a context by WithScope.
type handle struct {
	mu      sync.Mutex
	entities map[cachekeys.EntityKey]struct{}
}

// WithScope installs a fresh collector into ctx and returns the derived
// context. Call Collected(ctx) after the scoped work completes to read the
// accumulated set.
func WithScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, collectorKey, &handle{entities: make(map[cachekeys.EntityKey]struct{})})
}

// Record idempotently adds an entity to the collector installed on ctx. If
// no collector is installed, Record is a silent no-op — this is the
// deliberate path used when service methods are called from non-HTTP
// contexts such as background warming.
func Record(ctx context.Context, entity cachekeys.EntityKey) {
	h, ok := ctx.Value(collectorKey).(*handle)
	if !ok || h == nil {
		return
	}
	h.mu.Lock()
	h.entities[entity] = struct{}{}
	h.mu.Unlock()
}

// Collected returns the set of entities recorded on ctx so far. Returns an
// empty, non-nil map if no collector is installed.
func Collected(ctx context.Context) map[cachekeys.EntityKey]struct{} {
	h, ok := ctx.Value(collectorKey).(*handle)
	if !ok || h == nil {
		return map[cachekeys.EntityKey]struct{}{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[cachekeys.EntityKey]struct{}, len(h.entities))
	for e := range h.entities {
		out[e] = struct{}{}
	}
	return out
}

// Active reports whether a collector is installed on ctx. Sub-tasks spawned
// from within a scope do not inherit recording responsibility unless they
// are handed the same ctx explicitly — a sub-task started with
// context.Background() (as background warming does) will see Active return
// false, and Record on it is a no-op.
func Active(ctx context.Context) bool {
	_, ok := ctx.Value(collectorKey).(*handle)
	return ok
}
