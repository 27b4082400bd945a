package cachekeys

import "testing"

func TestHashFilterStatusOrderIndependence(t *testing.T) {
	a := PostFilter{TagSlug: "go", Statuses: []string{"published", "draft"}}
	b := PostFilter{TagSlug: "go", Statuses: []string{"draft", "published"}}

	if HashFilter(a) != HashFilter(b) {
		t.Fatalf("expected equal hashes for filters differing only in status order")
	}
}

func TestHashFilterDistinguishesFields(t *testing.T) {
	base := PostFilter{TagSlug: "go", MonthToken: "2026-07", SearchSubstring: "hello", Statuses: []string{"published"}}
	variants := []PostFilter{
		{TagSlug: "rust", MonthToken: base.MonthToken, SearchSubstring: base.SearchSubstring, Statuses: base.Statuses},
		{TagSlug: base.TagSlug, MonthToken: "2026-08", SearchSubstring: base.SearchSubstring, Statuses: base.Statuses},
		{TagSlug: base.TagSlug, MonthToken: base.MonthToken, SearchSubstring: "goodbye", Statuses: base.Statuses},
		{TagSlug: base.TagSlug, MonthToken: base.MonthToken, SearchSubstring: base.SearchSubstring, Statuses: []string{"draft"}},
	}

	baseHash := HashFilter(base)
	for i, v := range variants {
		if HashFilter(v) == baseHash {
			t.Errorf("variant %d: expected distinct hash from base filter", i)
		}
	}
}

func TestHashCursorDistinguishesFields(t *testing.T) {
	a := PostCursor{PrimaryValue: "2026-07-01", TiebreakerID: 5}
	b := PostCursor{PrimaryValue: "2026-07-01", TiebreakerID: 6}
	c := PostCursor{PrimaryValue: "2026-07-02", TiebreakerID: 5}

	if HashCursor(a) == HashCursor(b) {
		t.Fatalf("expected distinct hashes for differing tiebreaker ids")
	}
	if HashCursor(a) == HashCursor(c) {
		t.Fatalf("expected distinct hashes for differing primary values")
	}
}

func TestHashQueryDeterministic(t *testing.T) {
	q := "tag=go&page=2"
	if HashQuery(q) != HashQuery(q) {
		t.Fatalf("expected stable hash for identical query string")
	}
	if HashQuery(q) == HashQuery("tag=rust&page=2") {
		t.Fatalf("expected distinct hash for different query string")
	}
}

func TestEntityKeyConstructorsDistinctByKindAndPayload(t *testing.T) {
	seen := map[EntityKey]bool{}
	keys := []EntityKey{
		SiteSettings(), Navigation(), PostAggTags(), PostAggMonths(),
		Feed(), Sitemap(), PostsIndex(),
		Post(1), Post(2), PostSlug("a"), PostSlug("b"),
		Page(1), PageSlug("a"), ApiKey("pfx"),
	}
	for _, k := range keys {
		if seen[k] {
			t.Fatalf("duplicate entity key produced: %#v", k)
		}
		seen[k] = true
	}
}
