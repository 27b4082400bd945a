package cacheevents

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/otero-labs/contentcache/internal/cachelog"
)

// Queue is a bounded FIFO of events protected by a mutex, with an atomic
// monotonic epoch counter assigning total order at publish time. On
// overflow the oldest event is dropped and droppedTotal is incremented.
type Queue struct {
	log *cachelog.Logger

	mu       sync.Mutex
	items    *list.List // of *Event
	maxLen   int
	epoch    atomic.Uint64

	droppedTotal atomic.Int64
}

// NewQueue creates a bounded queue with the given maximum length.
func NewQueue(maxLen int) *Queue {
	if maxLen <= 0 {
		maxLen = 1
	}
	return &Queue{
		log:    cachelog.New("cacheevents"),
		items:  list.New(),
		maxLen: maxLen,
	}
}

// Publish assigns the next epoch to kind's event, attempts to coalesce it
// with an adjacent same-DedupKey event already in the queue, and pushes
// it — evicting the oldest entry first if the queue is at capacity.
func (q *Queue) Publish(e Event) Event {
	e.Epoch = q.epoch.Add(1) - 1

	q.mu.Lock()
	q.coalesceLocked(e)

	var overflowed bool
	if q.items.Len() >= q.maxLen {
		front := q.items.Front()
		if front != nil {
			q.items.Remove(front)
			q.droppedTotal.Add(1)
			overflowed = true
		}
	}
	q.items.PushBack(&e)
	qlen := q.items.Len()
	dropped := q.droppedTotal.Load()
	q.mu.Unlock()

	outcome := cachelog.Outcome("")
	if overflowed {
		outcome = cachelog.OutcomeEvict
	}
	q.log.Emit(outcome, cachelog.Fields{
		"event_kind":    int(e.Kind),
		"event_id":      e.ID,
		"queue_len":     qlen,
		"dropped_total": dropped,
	})
	return e
}

// coalesceLocked drops the most recently queued event if it has the same
// DedupKey as e, since e (being newer and adjacent to it) fully supersedes
// it. Older, non-adjacent events are left in place. Must be called with mu
// held.
func (q *Queue) coalesceLocked(e Event) {
	back := q.items.Back()
	if back != nil && back.Value.(*Event).Dedup() == e.Dedup() {
		q.items.Remove(back)
	}
}

// Drain removes and returns up to limit events in publish order. A limit
// of 0 or less drains the entire queue.
func (q *Queue) Drain(limit int) []Event {
	q.mu.Lock()
	if limit <= 0 {
		limit = q.items.Len()
	}
	out := make([]Event, 0, min(limit, q.items.Len()))
	for q.items.Len() > 0 && len(out) < limit {
		front := q.items.Front()
		out = append(out, *front.Value.(*Event))
		q.items.Remove(front)
	}
	q.mu.Unlock()

	q.log.Emit("", cachelog.Fields{"batch_size": len(out)})
	return out
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// DroppedTotal returns the running count of events evicted by overflow.
func (q *Queue) DroppedTotal() int64 {
	return q.droppedTotal.Load()
}
