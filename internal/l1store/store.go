// Package l1store implements the response cache (L1): a single bounded LRU
// of captured HTTP response snapshots keyed by (format, path, query hash),
// built with the same container/list LRU shape as this codebase's other
// bounded caches.
package l1store

import (
	"container/list"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/otero-labs/contentcache/internal/cachekeys"
	"github.com/otero-labs/contentcache/internal/cachelog"
)

// Entry is a captured response snapshot suitable for immediate response
// construction on a hit.
type Entry struct {
	Status int
	Header http.Header
	Body   []byte
}

// Clone returns a deep copy safe for a caller to mutate (e.g. to write
// directly into an http.ResponseWriter).
func (e Entry) Clone() Entry {
	h := make(http.Header, len(e.Header))
	for k, v := range e.Header {
		vv := make([]string, len(v))
		copy(vv, v)
		h[k] = vv
	}
	body := make([]byte, len(e.Body))
	copy(body, e.Body)
	return Entry{Status: e.Status, Header: h, Body: body}
}

type node struct {
	key   cachekeys.L1Key
	entry Entry
}

// Unregisterer is called when an entry leaves the store — by explicit
// Invalidate or by LRU eviction — so the registry never keeps a dangling
// row pointing at a removed key.
type Unregisterer interface {
	Unregister(key cachekeys.CacheKey)
}

// Store is the bounded L1 response cache.
type Store struct {
	log *cachelog.Logger

	mu       sync.Mutex
	items    map[cachekeys.L1Key]*list.Element
	order    *list.List
	capacity int

	bodyLimit int64

	registry Unregisterer

	oversizedSkipped atomic.Int64
}

// Config configures the L1 store.
type Config struct {
	Capacity             int
	ResponseBodyLimitBytes int64
}

// New creates an L1 store. registry is notified on every removal (explicit
// invalidation or LRU eviction) so it can unregister the departing key.
func New(cfg Config, registry Unregisterer) *Store {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1
	}
	return &Store{
		log:       cachelog.New("l1store"),
		items:     make(map[cachekeys.L1Key]*list.Element, cfg.Capacity),
		order:     list.New(),
		capacity:  cfg.Capacity,
		bodyLimit: cfg.ResponseBodyLimitBytes,
		registry:  registry,
	}
}

// Get returns a clone of the stored entry, suitable for immediate response
// construction, and moves it to the front of the LRU.
func (s *Store) Get(key cachekeys.L1Key) (Entry, bool) {
	s.mu.Lock()
	el, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		s.log.Emit(cachelog.OutcomeMiss, cachelog.Fields{"path": key.Path, "format": key.Format.String()})
		return Entry{}, false
	}
	s.order.MoveToFront(el)
	entry := el.Value.(*node).entry
	s.mu.Unlock()

	s.log.Emit(cachelog.OutcomeHit, cachelog.Fields{"path": key.Path, "format": key.Format.String()})
	return entry.Clone(), true
}

// Set stores a response snapshot, rejecting bodies over the configured
// limit. The caller is responsible for registering the key's dependency
// set with the registry in the same logical operation (the planner's
// invalidation path depends on that registration existing).
//
// Returns false if the body exceeded the limit and nothing was stored.
func (s *Store) Set(key cachekeys.L1Key, entry Entry) bool {
	if s.bodyLimit > 0 && int64(len(entry.Body)) > s.bodyLimit {
		s.oversizedSkipped.Add(1)
		s.log.Warn("response body exceeds l1 body limit, not cached", cachelog.Fields{
			"path": key.Path, "size": len(entry.Body), "limit": s.bodyLimit,
		})
		return false
	}

	stored := entry.Clone()

	s.mu.Lock()
	if el, ok := s.items[key]; ok {
		el.Value.(*node).entry = stored
		s.order.MoveToFront(el)
		s.mu.Unlock()
		return true
	}

	var evictedKey cachekeys.L1Key
	var didEvict bool
	if s.order.Len() >= s.capacity {
		back := s.order.Back()
		if back != nil {
			n := back.Value.(*node)
			evictedKey = n.key
			didEvict = true
			s.order.Remove(back)
			delete(s.items, n.key)
		}
	}

	el := s.order.PushFront(&node{key: key, entry: stored})
	s.items[key] = el
	s.mu.Unlock()

	if didEvict {
		s.log.Emit(cachelog.OutcomeEvict, cachelog.Fields{"path": evictedKey.Path})
		if s.registry != nil {
			s.registry.Unregister(evictedKey.CacheKey())
		}
	}
	return true
}

// Invalidate removes an entry and unregisters it from the registry.
func (s *Store) Invalidate(key cachekeys.L1Key) bool {
	s.mu.Lock()
	el, ok := s.items[key]
	if ok {
		s.order.Remove(el)
		delete(s.items, key)
	}
	s.mu.Unlock()

	if ok {
		s.log.Emit(cachelog.OutcomeInvalidate, cachelog.Fields{"path": key.Path})
		if s.registry != nil {
			s.registry.Unregister(key.CacheKey())
		}
	}
	return ok
}

// Len returns the current number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// OversizedSkipped returns the running count of responses rejected for
// exceeding the body size limit.
func (s *Store) OversizedSkipped() int64 {
	return s.oversizedSkipped.Load()
}

// RecoverPoisoned discards all entries and unregisters every key that was
// present, used after a reported lock poison elsewhere in the process.
func (s *Store) RecoverPoisoned() {
	s.mu.Lock()
	keys := make([]cachekeys.L1Key, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	s.items = make(map[cachekeys.L1Key]*list.Element, s.capacity)
	s.order = list.New()
	s.mu.Unlock()

	if s.registry != nil {
		for _, k := range keys {
			s.registry.Unregister(k.CacheKey())
		}
	}
	s.log.Warn("l1 store recovered from reported lock poisoning; state reset", nil)
}
