package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/otero-labs/contentcache/internal/cachekeys"
)

// Fake is an in-memory Repository used by tests and the demo binary. It is
// intentionally simple: linear scans over maps, no indexes, guarded by a
// single mutex. Production backing for this interface is out of scope.
type Fake struct {
	mu sync.RWMutex

	settings   SiteSettings
	navigation Navigation
	posts      map[int64]Post
	pages      map[int64]Page
	apiKeys    map[string]ApiKey
}

// NewFake creates an empty Fake repository seeded with default settings.
func NewFake() *Fake {
	return &Fake{
		settings: SiteSettings{Title: "Demo Site", Description: "A contentcache demo", BaseURL: "https://example.invalid"},
		posts:    make(map[int64]Post),
		pages:    make(map[int64]Page),
		apiKeys:  make(map[string]ApiKey),
	}
}

func (f *Fake) GetSiteSettings(ctx context.Context) (SiteSettings, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.settings, nil
}

func (f *Fake) SetSiteSettings(v SiteSettings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = v
}

func (f *Fake) GetNavigation(ctx context.Context) (Navigation, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.navigation, nil
}

func (f *Fake) SetNavigation(v Navigation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigation = v
}

func (f *Fake) GetTagCounts(ctx context.Context) ([]TagCount, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	counts := make(map[string]int)
	for _, p := range f.posts {
		if p.Status != "published" {
			continue
		}
		for _, tag := range p.Tags {
			counts[tag]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for slug, n := range counts {
		out = append(out, TagCount{Slug: slug, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (f *Fake) GetMonthCounts(ctx context.Context) ([]MonthCount, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	counts := make(map[string]int)
	for _, p := range f.posts {
		if p.Status != "published" {
			continue
		}
		counts[p.Month]++
	}
	out := make([]MonthCount, 0, len(counts))
	for token, n := range counts {
		out = append(out, MonthCount{Token: token, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (f *Fake) GetPostByID(ctx context.Context, id int64) (Post, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p, nil
}

func (f *Fake) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range f.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}

func (f *Fake) GetPageByID(ctx context.Context, id int64) (Page, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.pages[id]
	if !ok {
		return Page{}, ErrNotFound
	}
	return p, nil
}

func (f *Fake) GetPageBySlug(ctx context.Context, slug string) (Page, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range f.pages {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Page{}, ErrNotFound
}

func (f *Fake) GetApiKeyByPrefix(ctx context.Context, prefix string) (ApiKey, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	k, ok := f.apiKeys[prefix]
	if !ok {
		return ApiKey{}, ErrNotFound
	}
	return k, nil
}

// ListPosts applies filter, then paginates by UpdatedAt descending using
// cursor as an opaque "last seen id" offset: a linear scan fake, not a
// production index.
func (f *Fake) ListPosts(ctx context.Context, filter cachekeys.PostFilter, cursor cachekeys.PostCursor) (PostListPage, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	matched := make([]Post, 0, len(f.posts))
	for _, p := range f.posts {
		if !matchesFilter(p, filter) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	start := 0
	if cursor.TiebreakerID != 0 {
		for i, p := range matched {
			if p.ID == cursor.TiebreakerID {
				start = i + 1
				break
			}
		}
	}

	const pageSize = 10
	end := start + pageSize
	hasMore := end < len(matched)
	if end > len(matched) {
		end = len(matched)
	}

	page := matched[start:end]
	out := PostListPage{Posts: append([]Post(nil), page...), HasMore: hasMore}
	if hasMore {
		out.NextCursor = itoa64(page[len(page)-1].ID)
	}
	return out, nil
}

func matchesFilter(p Post, filter cachekeys.PostFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if s == p.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.TagSlug != "" {
		found := false
		for _, t := range p.Tags {
			if t == filter.TagSlug {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.MonthToken != "" && p.Month != filter.MonthToken {
		return false
	}
	if filter.SearchSubstring != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(filter.SearchSubstring)) {
		return false
	}
	return true
}

// PutPost inserts or replaces a post, simulating an admin write.
func (f *Fake) PutPost(p Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[p.ID] = p
}

// DeletePost removes a post, simulating an admin delete.
func (f *Fake) DeletePost(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.posts, id)
}

// PutPage inserts or replaces a page.
func (f *Fake) PutPage(p Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[p.ID] = p
}

// DeletePage removes a page.
func (f *Fake) DeletePage(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pages, id)
}

// PutApiKey inserts or replaces an API key.
func (f *Fake) PutApiKey(k ApiKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys[k.Prefix] = k
}

func itoa64(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
