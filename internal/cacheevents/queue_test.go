package cacheevents

import "testing"

func TestPublishAssignsIncreasingEpochs(t *testing.T) {
	q := NewQueue(10)
	e1 := q.Publish(PostUpserted("1", 1, "a"))
	e2 := q.Publish(PostUpserted("2", 2, "b"))

	if e2.Epoch <= e1.Epoch {
		t.Fatalf("expected strictly increasing epochs, got %d then %d", e1.Epoch, e2.Epoch)
	}
}

func TestCoalescesAdjacentSameDedupKey(t *testing.T) {
	q := NewQueue(10)
	q.Publish(PostUpserted("1", 42, "old-slug"))
	q.Publish(PostUpserted("2", 42, "new-slug")) // same post id, supersedes

	events := q.Drain(0)
	if len(events) != 1 {
		t.Fatalf("expected coalescing to leave exactly one event, got %d: %v", len(events), events)
	}
	if events[0].Slug != "new-slug" {
		t.Fatalf("expected the newer event to survive coalescing, got %+v", events[0])
	}
}

func TestDoesNotCoalesceDifferentIdentities(t *testing.T) {
	q := NewQueue(10)
	q.Publish(PostUpserted("1", 1, "a"))
	q.Publish(PostUpserted("2", 2, "b"))

	if got := len(q.Drain(0)); got != 2 {
		t.Fatalf("expected 2 distinct events retained, got %d", got)
	}
}

func TestOverflowDropsOldestAndCountsIt(t *testing.T) {
	q := NewQueue(2)
	q.Publish(PostUpserted("1", 1, "a"))
	q.Publish(PostUpserted("2", 2, "b"))
	q.Publish(PostUpserted("3", 3, "c")) // overflow, drops id1

	events := q.Drain(0)
	if len(events) != 2 {
		t.Fatalf("expected queue bounded to 2 events, got %d", len(events))
	}
	if events[0].ID64 != 2 {
		t.Fatalf("expected oldest surviving event to be id2, got %+v", events[0])
	}
	if q.DroppedTotal() != 1 {
		t.Fatalf("expected dropped total of 1, got %d", q.DroppedTotal())
	}
}

func TestDrainRespectsLimit(t *testing.T) {
	q := NewQueue(10)
	for i := int64(0); i < 5; i++ {
		q.Publish(PostUpserted("", i+100, "x")) // distinct ids avoid coalescing
	}

	batch := q.Drain(2)
	if len(batch) != 2 {
		t.Fatalf("expected limited batch of 2, got %d", len(batch))
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 events remaining in queue, got %d", q.Len())
	}
}

func TestEmptyEventIDsAreNotDeduped(t *testing.T) {
	q := NewQueue(10)
	q.Publish(SiteSettingsUpdated(""))
	q.Publish(NavigationUpdated(""))

	if got := len(q.Drain(0)); got != 2 {
		t.Fatalf("expected both events retained despite empty ids, got %d", got)
	}
}

func TestDedupKeyGroupsPostVariantsTogether(t *testing.T) {
	upsert := PostUpserted("1", 9, "a")
	del := PostDeleted("2", 9, "a")
	if upsert.Dedup() != del.Dedup() {
		t.Fatalf("expected post upsert and delete for the same id to share a dedup key")
	}
}

func TestDedupKeyDistinguishesKindFamilies(t *testing.T) {
	post := PostUpserted("1", 1, "a")
	page := PageUpserted("2", 1, "a")
	if post.Dedup() == page.Dedup() {
		t.Fatalf("expected post and page dedup keys to differ even with matching id/slug")
	}
}
