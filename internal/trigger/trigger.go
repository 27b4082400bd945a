// Package trigger exposes the single surface writers call to publish cache
// events and, optionally, drive synchronous invalidation before returning.
// This is the only guarantee point for write-after-read visibility: a
// writer that calls Trigger(kind, true) and then completes its response has
// ensured the very next public read observes the mutation's effects.
package trigger

import (
	"context"
	"sync/atomic"

	"github.com/otero-labs/contentcache/internal/cacheevents"
	"github.com/otero-labs/contentcache/internal/consumer"
)

// Trigger is the writer-facing publish/invalidate surface.
type Trigger struct {
	queue    *cacheevents.Queue
	consumer *consumer.Consumer
	disabled atomic.Bool
}

// New creates a Trigger wired to the given queue and consumer.
func New(queue *cacheevents.Queue, c *consumer.Consumer) *Trigger {
	return &Trigger{queue: queue, consumer: c}
}

// SetDisabled gates all trigger activity; while disabled, Trigger is a
// no-op, matching the cache's global enable_l0_cache/enable_l1_cache
// disable switch at the write path.
func (t *Trigger) SetDisabled(disabled bool) {
	t.disabled.Store(disabled)
}

// Trigger publishes kind and, if consumeNow is true, synchronously drives
// ConsumeInvalidateOnly before returning. The synchronous call is not
// cancellable from the writer's side: it is a short, bounded-cost,
// no-I/O operation.
func (t *Trigger) Trigger(ctx context.Context, kind cacheevents.Event, consumeNow bool) {
	if t.disabled.Load() {
		return
	}

	t.queue.Publish(kind)

	if consumeNow {
		t.consumer.ConsumeInvalidateOnly(ctx)
	}
}
