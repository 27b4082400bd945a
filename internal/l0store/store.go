// Package l0store implements the typed in-memory object cache (L0): bounded
// LRU containers per entity family plus singleton slots, generalizing the
// bounded in-memory LRU technique used throughout this codebase's response
// cache to a typed multi-family store.
package l0store

import (
	"sync"
	"sync/atomic"

	"github.com/otero-labs/contentcache/internal/cachekeys"
	"github.com/otero-labs/contentcache/internal/cachelog"
	"github.com/otero-labs/contentcache/internal/repository"
)

// Limits configures per-family LRU capacity, sourced from the host's
// configuration surface.
type Limits struct {
	PostLimit     int
	PageLimit     int
	ApiKeyLimit   int
	PostListLimit int
}

// Store is the L0 object cache. All public methods are safe for concurrent
// use; no method holds a lock across a suspension point.
type Store struct {
	log *cachelog.Logger

	disabled atomic.Bool

	singletonMu  sync.RWMutex
	siteSettings *repository.SiteSettings
	navigation   *repository.Navigation
	tagCounts    []repository.TagCount
	monthCounts  []repository.MonthCount

	postByID   *keyedLRU[int64, repository.Post]
	postBySlug *keyedLRU[string, repository.Post]
	pageByID   *keyedLRU[int64, repository.Page]
	pageBySlug *keyedLRU[string, repository.Page]
	apiKeys    *keyedLRU[string, repository.ApiKey]
	postLists  *keyedLRU[cachekeys.CacheKey, repository.PostListPage]
}

// New creates an L0 store with the given per-family capacities.
func New(limits Limits) *Store {
	return &Store{
		log:        cachelog.New("l0store"),
		postByID:   newKeyedLRU[int64, repository.Post](limits.PostLimit),
		postBySlug: newKeyedLRU[string, repository.Post](limits.PostLimit),
		pageByID:   newKeyedLRU[int64, repository.Page](limits.PageLimit),
		pageBySlug: newKeyedLRU[string, repository.Page](limits.PageLimit),
		apiKeys:    newKeyedLRU[string, repository.ApiKey](limits.ApiKeyLimit),
		postLists:  newKeyedLRU[cachekeys.CacheKey, repository.PostListPage](limits.PostListLimit),
	}
}

// SetEnabled gates all L0 usage. While disabled every lookup misses and
// every store is dropped, so callers fall through to the repository on each
// read.
func (s *Store) SetEnabled(enabled bool) {
	s.disabled.Store(!enabled)
}

// --- Singletons ---

func (s *Store) GetSiteSettings() (repository.SiteSettings, bool) {
	if s.disabled.Load() {
		return repository.SiteSettings{}, false
	}
	s.singletonMu.RLock()
	defer s.singletonMu.RUnlock()
	if s.siteSettings == nil {
		return repository.SiteSettings{}, false
	}
	v := *s.siteSettings
	return v, true
}

func (s *Store) SetSiteSettings(v repository.SiteSettings) {
	if s.disabled.Load() {
		return
	}
	s.singletonMu.Lock()
	defer s.singletonMu.Unlock()
	cp := v
	s.siteSettings = &cp
}

func (s *Store) InvalidateSiteSettings() {
	s.singletonMu.Lock()
	defer s.singletonMu.Unlock()
	s.siteSettings = nil
}

func (s *Store) GetNavigation() (repository.Navigation, bool) {
	if s.disabled.Load() {
		return repository.Navigation{}, false
	}
	s.singletonMu.RLock()
	defer s.singletonMu.RUnlock()
	if s.navigation == nil {
		return repository.Navigation{}, false
	}
	v := *s.navigation
	items := make([]repository.NavItem, len(v.Items))
	copy(items, v.Items)
	v.Items = items
	return v, true
}

func (s *Store) SetNavigation(v repository.Navigation) {
	if s.disabled.Load() {
		return
	}
	s.singletonMu.Lock()
	defer s.singletonMu.Unlock()
	items := make([]repository.NavItem, len(v.Items))
	copy(items, v.Items)
	cp := repository.Navigation{Items: items}
	s.navigation = &cp
}

func (s *Store) InvalidateNavigation() {
	s.singletonMu.Lock()
	defer s.singletonMu.Unlock()
	s.navigation = nil
}

func (s *Store) GetTagCounts() ([]repository.TagCount, bool) {
	if s.disabled.Load() {
		return nil, false
	}
	s.singletonMu.RLock()
	defer s.singletonMu.RUnlock()
	if s.tagCounts == nil {
		return nil, false
	}
	out := make([]repository.TagCount, len(s.tagCounts))
	copy(out, s.tagCounts)
	return out, true
}

func (s *Store) SetTagCounts(v []repository.TagCount) {
	if s.disabled.Load() {
		return
	}
	s.singletonMu.Lock()
	defer s.singletonMu.Unlock()
	cp := make([]repository.TagCount, len(v))
	copy(cp, v)
	s.tagCounts = cp
}

func (s *Store) InvalidateTagCounts() {
	s.singletonMu.Lock()
	defer s.singletonMu.Unlock()
	s.tagCounts = nil
}

func (s *Store) GetMonthCounts() ([]repository.MonthCount, bool) {
	if s.disabled.Load() {
		return nil, false
	}
	s.singletonMu.RLock()
	defer s.singletonMu.RUnlock()
	if s.monthCounts == nil {
		return nil, false
	}
	out := make([]repository.MonthCount, len(s.monthCounts))
	copy(out, s.monthCounts)
	return out, true
}

func (s *Store) SetMonthCounts(v []repository.MonthCount) {
	if s.disabled.Load() {
		return
	}
	s.singletonMu.Lock()
	defer s.singletonMu.Unlock()
	cp := make([]repository.MonthCount, len(v))
	copy(cp, v)
	s.monthCounts = cp
}

func (s *Store) InvalidateMonthCounts() {
	s.singletonMu.Lock()
	defer s.singletonMu.Unlock()
	s.monthCounts = nil
}

// --- Posts: id- and slug-indexed entries are written atomically so a
// reader never observes id-hit + slug-miss for the same post. ---

func (s *Store) GetPostByID(id int64) (repository.Post, bool) {
	if s.disabled.Load() {
		return repository.Post{}, false
	}
	p, ok := s.postByID.get(id)
	s.logLookup("post_by_id", ok)
	return p, ok
}

func (s *Store) GetPostBySlug(slug string) (repository.Post, bool) {
	if s.disabled.Load() {
		return repository.Post{}, false
	}
	p, ok := s.postBySlug.get(slug)
	s.logLookup("post_by_slug", ok)
	return p, ok
}

// SetPost writes both indexes for a post as a single logical operation.
func (s *Store) SetPost(p repository.Post) {
	if s.disabled.Load() {
		return
	}
	p.Tags = append([]string(nil), p.Tags...)
	if _, evicted := s.postByID.set(p.ID, p); evicted {
		s.logEvict("post_by_id")
	}
	if _, evicted := s.postBySlug.set(p.Slug, p); evicted {
		s.logEvict("post_by_slug")
	}
}

// InvalidatePostByID and InvalidatePostBySlug remove a post from both
// indexes given either identity.
// Callers needing to invalidate both Post(id) and PostSlug(slug) for the
// same underlying post should call both helpers below; each independently
// removes from both indexes so there is never a dangling half-entry.
func (s *Store) InvalidatePostByID(id int64) {
	if p, ok := s.postByID.get(id); ok {
		s.postByID.delete(id)
		s.postBySlug.delete(p.Slug)
		return
	}
	s.postByID.delete(id)
}

func (s *Store) InvalidatePostBySlug(slug string) {
	if p, ok := s.postBySlug.get(slug); ok {
		s.postBySlug.delete(slug)
		s.postByID.delete(p.ID)
		return
	}
	s.postBySlug.delete(slug)
}

func (s *Store) InvalidateAllPostLists() {
	s.postLists.clear()
}

// --- Pages: same id/slug-atomic discipline as posts. ---

func (s *Store) GetPageByID(id int64) (repository.Page, bool) {
	if s.disabled.Load() {
		return repository.Page{}, false
	}
	p, ok := s.pageByID.get(id)
	s.logLookup("page_by_id", ok)
	return p, ok
}

func (s *Store) GetPageBySlug(slug string) (repository.Page, bool) {
	if s.disabled.Load() {
		return repository.Page{}, false
	}
	p, ok := s.pageBySlug.get(slug)
	s.logLookup("page_by_slug", ok)
	return p, ok
}

func (s *Store) SetPage(p repository.Page) {
	if s.disabled.Load() {
		return
	}
	if _, evicted := s.pageByID.set(p.ID, p); evicted {
		s.logEvict("page_by_id")
	}
	if _, evicted := s.pageBySlug.set(p.Slug, p); evicted {
		s.logEvict("page_by_slug")
	}
}

func (s *Store) InvalidatePageByID(id int64) {
	if p, ok := s.pageByID.get(id); ok {
		s.pageByID.delete(id)
		s.pageBySlug.delete(p.Slug)
		return
	}
	s.pageByID.delete(id)
}

func (s *Store) InvalidatePageBySlug(slug string) {
	if p, ok := s.pageBySlug.get(slug); ok {
		s.pageBySlug.delete(slug)
		s.pageByID.delete(p.ID)
		return
	}
	s.pageBySlug.delete(slug)
}

// --- API keys ---

func (s *Store) GetApiKeyByPrefix(prefix string) (repository.ApiKey, bool) {
	if s.disabled.Load() {
		return repository.ApiKey{}, false
	}
	k, ok := s.apiKeys.get(prefix)
	s.logLookup("api_key", ok)
	return k, ok
}

func (s *Store) SetApiKey(k repository.ApiKey) {
	if s.disabled.Load() {
		return
	}
	if _, evicted := s.apiKeys.set(k.Prefix, k); evicted {
		s.logEvict("api_key")
	}
}

func (s *Store) InvalidateApiKey(prefix string) {
	s.apiKeys.delete(prefix)
}

// --- Post lists ---

func (s *Store) GetPostList(key cachekeys.CacheKey) (repository.PostListPage, bool) {
	if s.disabled.Load() {
		return repository.PostListPage{}, false
	}
	p, ok := s.postLists.get(key)
	s.logLookup("post_list", ok)
	return p, ok
}

// logLookup emits a hit/miss line for a family lookup. Kept to a single
// helper rather than duplicated per call site, since every family logs the
// same two fields.
func (s *Store) logLookup(family string, hit bool) {
	outcome := cachelog.OutcomeMiss
	if hit {
		outcome = cachelog.OutcomeHit
	}
	s.log.Emit(outcome, cachelog.Fields{"family": family})
}

func (s *Store) logEvict(family string) {
	s.log.Emit(cachelog.OutcomeEvict, cachelog.Fields{"family": family})
}

func (s *Store) SetPostList(key cachekeys.CacheKey, page repository.PostListPage) {
	if s.disabled.Load() {
		return
	}
	posts := make([]repository.Post, len(page.Posts))
	copy(posts, page.Posts)
	page.Posts = posts
	if _, evicted := s.postLists.set(key, page); evicted {
		s.logEvict("post_list")
	}
}

// RecoverPoisoned resets every family to empty and logs once. Called by a
// caller that detects it panicked while a lock on this store may have been
// held (e.g. via recover() in a deferred handler); a reader panicking mid
// read must never permanently disable the cache.
func (s *Store) RecoverPoisoned() {
	s.singletonMu.Lock()
	s.siteSettings = nil
	s.navigation = nil
	s.tagCounts = nil
	s.monthCounts = nil
	s.singletonMu.Unlock()

	s.postByID.reset()
	s.postBySlug.reset()
	s.pageByID.reset()
	s.pageBySlug.reset()
	s.apiKeys.reset()
	s.postLists.reset()

	s.log.Warn("l0 store recovered from reported lock poisoning; state reset", nil)
}
