package depcollector

import (
	"context"
	"testing"

	"github.com/otero-labs/contentcache/internal/cachekeys"
)

func TestRecordWithoutScopeIsNoOp(t *testing.T) {
	ctx := context.Background()
	Record(ctx, cachekeys.PostSlug("a")) // must not panic

	collected := Collected(ctx)
	if len(collected) != 0 {
		t.Fatalf("expected empty collection without an installed scope, got %v", collected)
	}
	if Active(ctx) {
		t.Fatalf("expected Active to report false without an installed scope")
	}
}

func TestRecordAccumulatesWithinScope(t *testing.T) {
	ctx := WithScope(context.Background())
	if !Active(ctx) {
		t.Fatalf("expected Active to report true within a scope")
	}

	Record(ctx, cachekeys.PostSlug("a"))
	Record(ctx, cachekeys.PostsIndex())
	Record(ctx, cachekeys.PostSlug("a")) // idempotent

	collected := Collected(ctx)
	if len(collected) != 2 {
		t.Fatalf("expected 2 distinct entities recorded, got %d: %v", len(collected), collected)
	}
	if _, ok := collected[cachekeys.PostSlug("a")]; !ok {
		t.Fatalf("expected PostSlug(a) recorded")
	}
}

func TestCollectedReturnsCopy(t *testing.T) {
	ctx := WithScope(context.Background())
	Record(ctx, cachekeys.PostSlug("a"))

	collected := Collected(ctx)
	delete(collected, cachekeys.PostSlug("a"))

	again := Collected(ctx)
	if len(again) != 1 {
		t.Fatalf("mutating a Collected result must not affect the underlying collector")
	}
}

func TestUnscopedContextDoesNotRecordIntoScope(t *testing.T) {
	scoped := WithScope(context.Background())
	Record(scoped, cachekeys.PostSlug("a"))

	unscoped := context.Background()
	Record(unscoped, cachekeys.PostSlug("b"))

	collected := Collected(scoped)
	if len(collected) != 1 {
		t.Fatalf("expected only the scoped record to be present, got %v", collected)
	}
}
