package trigger

import (
	"context"
	"testing"

	"github.com/otero-labs/contentcache/internal/cacheevents"
	"github.com/otero-labs/contentcache/internal/consumer"
	"github.com/otero-labs/contentcache/internal/l0store"
	"github.com/otero-labs/contentcache/internal/l1store"
	"github.com/otero-labs/contentcache/internal/registry"
	"github.com/otero-labs/contentcache/internal/repository"
)

func newTestTrigger() (*Trigger, *l0store.Store, *cacheevents.Queue) {
	repo := repository.NewFake()
	l0 := l0store.New(l0store.Limits{PostLimit: 10, PageLimit: 10, ApiKeyLimit: 10, PostListLimit: 10})
	reg := registry.New()
	l1 := l1store.New(l1store.Config{Capacity: 10, ResponseBodyLimitBytes: 1 << 20}, reg)
	queue := cacheevents.NewQueue(100)
	c := consumer.New(l0, l1, reg, queue, repo, nil, consumer.Config{ConsumeBatchLimit: 100})
	return New(queue, c), l0, queue
}

func TestTriggerPublishesWithoutConsume(t *testing.T) {
	trig, l0, _ := newTestTrigger()
	l0.SetSiteSettings(repository.SiteSettings{Title: "x"})

	trig.Trigger(context.Background(), cacheevents.SiteSettingsUpdated("1"), false)

	if _, ok := l0.GetSiteSettings(); !ok {
		t.Fatalf("expected no synchronous invalidation when consumeNow is false")
	}
}

func TestTriggerConsumeNowInvalidatesImmediately(t *testing.T) {
	trig, l0, _ := newTestTrigger()
	l0.SetSiteSettings(repository.SiteSettings{Title: "x"})

	trig.Trigger(context.Background(), cacheevents.SiteSettingsUpdated("1"), true)

	if _, ok := l0.GetSiteSettings(); ok {
		t.Fatalf("expected synchronous invalidation when consumeNow is true")
	}
}

func TestDisabledTriggerIsNoOp(t *testing.T) {
	trig, _, queue := newTestTrigger()
	trig.SetDisabled(true)

	trig.Trigger(context.Background(), cacheevents.SiteSettingsUpdated("1"), true)

	if queue.Len() != 0 {
		t.Fatalf("expected disabled trigger to never publish, queue len=%d", queue.Len())
	}
}
