// Package cacheevents defines the closed set of write events the cache
// reacts to, and the bounded, epoch-ordered queue that carries them from
// the trigger API to the consumer.
package cacheevents

// Kind is the closed set of event variants. New kinds are never added by
// external callers — the planner depends on exhaustive matching over this
// set for deterministic plans, so it is a tagged sum, not an open
// interface.
type Kind uint8

const (
	KindSiteSettingsUpdated Kind = iota
	KindNavigationUpdated
	KindPostUpserted
	KindPostDeleted
	KindPageUpserted
	KindPageDeleted
	KindApiKeyUpserted
	KindApiKeyRevoked
	KindWarmupOnStartup
)

// Event is a single published write notification.
type Event struct {
	ID    string // idempotency identifier; time-ordered is preferred but not required.
	Epoch uint64 // monotonic per-queue sequence number assigned at publish time.
	Kind  Kind

	// Post/Page payload.
	ID64 int64
	Slug string

	// ApiKey payload.
	Prefix string
}

// DedupKey identifies events that are candidates for coalescing: adjacent
// events of the same kind-family referencing the same key fields, where
// the newer fully supersedes the older.
type DedupKey struct {
	Kind Kind
	ID64 int64
	Slug string
	Prefix string
}

// Dedup returns the coalescing key for this event. Events with an equal
// DedupKey and adjacent positions in the queue may be coalesced, keeping
// only the newer one.
func (e Event) Dedup() DedupKey {
	switch e.Kind {
	case KindPostUpserted, KindPostDeleted:
		return DedupKey{Kind: coalesceFamilyPost, ID64: e.ID64}
	case KindPageUpserted, KindPageDeleted:
		return DedupKey{Kind: coalesceFamilyPage, ID64: e.ID64}
	case KindApiKeyUpserted, KindApiKeyRevoked:
		return DedupKey{Kind: coalesceFamilyApiKey, Prefix: e.Prefix}
	case KindSiteSettingsUpdated:
		return DedupKey{Kind: KindSiteSettingsUpdated}
	case KindNavigationUpdated:
		return DedupKey{Kind: KindNavigationUpdated}
	default:
		return DedupKey{Kind: e.Kind, ID64: e.ID64, Slug: e.Slug, Prefix: e.Prefix}
	}
}

// Coalescing families: post upsert/delete supersede each other regardless
// of which variant, and likewise for pages and api keys, since only the
// latest state of a given id/prefix matters for invalidation purposes.
const (
	coalesceFamilyPost Kind = iota + 100
	coalesceFamilyPage
	coalesceFamilyApiKey
)

// PostUpserted builds a post-upserted event.
func PostUpserted(id string, postID int64, slug string) Event {
	return Event{ID: id, Kind: KindPostUpserted, ID64: postID, Slug: slug}
}

// PostDeleted builds a post-deleted event.
func PostDeleted(id string, postID int64, slug string) Event {
	return Event{ID: id, Kind: KindPostDeleted, ID64: postID, Slug: slug}
}

// PageUpserted builds a page-upserted event.
func PageUpserted(id string, pageID int64, slug string) Event {
	return Event{ID: id, Kind: KindPageUpserted, ID64: pageID, Slug: slug}
}

// PageDeleted builds a page-deleted event.
func PageDeleted(id string, pageID int64, slug string) Event {
	return Event{ID: id, Kind: KindPageDeleted, ID64: pageID, Slug: slug}
}

// ApiKeyUpserted builds an api-key-upserted event.
func ApiKeyUpserted(id string, prefix string) Event {
	return Event{ID: id, Kind: KindApiKeyUpserted, Prefix: prefix}
}

// ApiKeyRevoked builds an api-key-revoked event.
func ApiKeyRevoked(id string, prefix string) Event {
	return Event{ID: id, Kind: KindApiKeyRevoked, Prefix: prefix}
}

// SiteSettingsUpdated builds a site-settings-updated event.
func SiteSettingsUpdated(id string) Event {
	return Event{ID: id, Kind: KindSiteSettingsUpdated}
}

// NavigationUpdated builds a navigation-updated event.
func NavigationUpdated(id string) Event {
	return Event{ID: id, Kind: KindNavigationUpdated}
}

// WarmupOnStartup builds the synthetic startup warm-everything event.
func WarmupOnStartup(id string) Event {
	return Event{ID: id, Kind: KindWarmupOnStartup}
}
