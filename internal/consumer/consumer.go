// Package consumer executes a ConsumptionPlan against the cache: it drains
// the event queue, builds a plan, invalidates L0 and L1 entries, and
// (in full mode) performs warming. A single-flight guard via atomic.Bool
// ensures two consumer invocations never overlap, the same newcomer
// observe-and-return idiom this codebase's warming service uses for its
// emergency-stop flag, generalized to guard the whole consume cycle.
package consumer

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/otero-labs/contentcache/internal/cacheevents"
	"github.com/otero-labs/contentcache/internal/cachekeys"
	"github.com/otero-labs/contentcache/internal/cachelog"
	"github.com/otero-labs/contentcache/internal/l0store"
	"github.com/otero-labs/contentcache/internal/l1store"
	"github.com/otero-labs/contentcache/internal/planner"
	"github.com/otero-labs/contentcache/internal/registry"
	"github.com/otero-labs/contentcache/internal/repository"
	"github.com/otero-labs/contentcache/internal/warmsync"
)

// Config configures batch size and the background loop cadence.
type Config struct {
	ConsumeBatchLimit   int
	AutoConsumeInterval time.Duration
}

// Consumer executes plans against the L0 store, L1 store and registry.
type Consumer struct {
	log *cachelog.Logger

	l0       *l0store.Store
	l1       *l1store.Store
	reg      *registry.Registry
	queue    *cacheevents.Queue
	repo     repository.Repository
	warm     *warmsync.Limiter
	cfg      Config

	inProgress      atomic.Bool
	lastDroppedSeen atomic.Int64

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a Consumer wired to the store and queue it will execute plans
// against.
func New(l0 *l0store.Store, l1 *l1store.Store, reg *registry.Registry, queue *cacheevents.Queue, repo repository.Repository, warm *warmsync.Limiter, cfg Config) *Consumer {
	if cfg.ConsumeBatchLimit <= 0 {
		cfg.ConsumeBatchLimit = 100
	}
	return &Consumer{
		log:      cachelog.New("consumer"),
		l0:       l0,
		l1:       l1,
		reg:      reg,
		queue:    queue,
		repo:     repo,
		warm:     warm,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

// ConsumeInvalidateOnly drains the queue, plans, and invalidates — the
// synchronous phase driven directly by the trigger API's write path. It
// holds no lock across the drain: it reads events into a local slice,
// releases the queue's internal lock (Drain already does this), then
// operates purely on local state.
func (c *Consumer) ConsumeInvalidateOnly(ctx context.Context) {
	c.runCycle(ctx, false)
}

// ConsumeFull drains, plans, invalidates, then warms. Used by the
// background loop and on startup.
func (c *Consumer) ConsumeFull(ctx context.Context) {
	c.runCycle(ctx, true)
}

func (c *Consumer) runCycle(ctx context.Context, warmPhase bool) {
	if !c.inProgress.CompareAndSwap(false, true) {
		// A consume cycle is already running; this invocation's events are
		// already queued and will be covered by the running cycle or the
		// next one. Observe and return rather than blocking the caller.
		return
	}
	defer c.inProgress.Store(false)

	start := time.Now()
	events := c.queue.Drain(c.cfg.ConsumeBatchLimit)

	droppedNow := c.queue.DroppedTotal()
	droppedSincePrev := droppedNow - c.lastDroppedSeen.Swap(droppedNow)
	if droppedSincePrev > 0 {
		// Overflow occurred since the last cycle: we cannot know which
		// entities the dropped events referenced, so conservatively treat
		// this batch as a full warm — the retained events still drive
		// precise invalidation for the entities we do know about.
		events = append(events, cacheevents.WarmupOnStartup("overflow-promotion"))
	}

	if len(events) == 0 {
		return
	}

	plan := planner.Plan(events)

	invalidated := c.invalidate(plan)

	warmed := 0
	if warmPhase {
		warmed = c.warmAll(ctx, plan)
	}

	c.log.Emit(cachelog.OutcomeInvalidate, cachelog.Fields{
		"invalidated_count": invalidated,
		"warmed_count":      warmed,
		"duration_ms":       time.Since(start).Milliseconds(),
	})
}

// invalidate performs phases 3 and 4: remove the entity's L0 entries, then
// look up and invalidate any L1 entries depending on the entity via the
// registry (which unregisters them too).
func (c *Consumer) invalidate(plan *planner.ConsumptionPlan) int {
	count := 0
	for entity := range plan.InvalidateEntities {
		c.invalidateEntityL0(entity)
		count++

		for _, ck := range c.reg.KeysForEntity(entity) {
			if ck.Family == cachekeys.L1Response {
				c.l1.Invalidate(cachekeys.L1Key{Format: ck.Format, Path: ck.Path, QueryHash: ck.QueryHash})
			}
		}
	}
	return count
}

func (c *Consumer) invalidateEntityL0(entity cachekeys.EntityKey) {
	switch entity.Kind {
	case cachekeys.EntitySiteSettings:
		c.l0.InvalidateSiteSettings()
	case cachekeys.EntityNavigation:
		c.l0.InvalidateNavigation()
	case cachekeys.EntityPostAggTags:
		c.l0.InvalidateTagCounts()
	case cachekeys.EntityPostAggMonths:
		c.l0.InvalidateMonthCounts()
	case cachekeys.EntityPost:
		c.l0.InvalidatePostByID(entity.ID)
		c.l0.InvalidateAllPostLists()
	case cachekeys.EntityPostSlug:
		c.l0.InvalidatePostBySlug(entity.Str)
		c.l0.InvalidateAllPostLists()
	case cachekeys.EntityPage:
		c.l0.InvalidatePageByID(entity.ID)
	case cachekeys.EntityPageSlug:
		c.l0.InvalidatePageBySlug(entity.Str)
	case cachekeys.EntityApiKey:
		c.l0.InvalidateApiKey(entity.Str)
	case cachekeys.EntityPostsIndex, cachekeys.EntityFeed, cachekeys.EntitySitemap:
		// These entities have no dedicated L0 singleton of their own; their
		// only cached form lives in L1 (handled by the registry lookup in
		// invalidate()), except PostsIndex which also bounds the post-list
		// family.
		if entity.Kind == cachekeys.EntityPostsIndex {
			c.l0.InvalidateAllPostLists()
		}
	}
}

// warmAll performs phase 5: best-effort warming. Independent warm actions
// fan out across goroutines; a failure loading one item is logged and does
// not abort the batch, and the queue is not re-charged (best-effort).
//
// Singleflight keys are per entity ("page:3", not "page"), so when the
// navigation-page warm and a targeted page warm race for the same id, the
// repository is hit once and both receive the result.
func (c *Consumer) warmAll(ctx context.Context, plan *planner.ConsumptionPlan) int {
	bg := context.Background() // warming never inherits a request's dependency scope.

	var warmed atomic.Int64
	var wg sync.WaitGroup
	run := func(entity string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				c.warnFailure(entity, err)
				return
			}
			warmed.Add(1)
		}()
	}

	if plan.WarmSiteSettings {
		run("site_settings", func() error {
			s, err := c.load(bg, "site_settings", func() (interface{}, error) {
				return c.repo.GetSiteSettings(bg)
			})
			if err != nil {
				return err
			}
			c.l0.SetSiteSettings(s.(repository.SiteSettings))
			return nil
		})
	}

	if plan.WarmNavigation || plan.WarmNavigationPages {
		// Navigation loads synchronously: the page fan-out below needs its
		// item list before the remaining goroutines are worth starting.
		n, err := c.load(bg, "navigation", func() (interface{}, error) {
			return c.repo.GetNavigation(bg)
		})
		if err != nil {
			c.warnFailure("navigation", err)
		} else {
			nav := n.(repository.Navigation)
			if plan.WarmNavigation {
				c.l0.SetNavigation(nav)
				warmed.Add(1)
			}
			if plan.WarmNavigationPages {
				for _, item := range nav.Items {
					if item.InternalPage == 0 {
						continue
					}
					id := item.InternalPage
					run("page", func() error {
						p, err := c.load(bg, "page:"+strconv.FormatInt(id, 10), func() (interface{}, error) {
							return c.repo.GetPageByID(bg, id)
						})
						if err != nil {
							return err
						}
						c.l0.SetPage(p.(repository.Page))
						return nil
					})
				}
			}
		}
	}

	if plan.WarmAggregations {
		run("tag_counts", func() error {
			tc, err := c.load(bg, "tag_counts", func() (interface{}, error) {
				return c.repo.GetTagCounts(bg)
			})
			if err != nil {
				return err
			}
			c.l0.SetTagCounts(tc.([]repository.TagCount))
			return nil
		})
		run("month_counts", func() error {
			mc, err := c.load(bg, "month_counts", func() (interface{}, error) {
				return c.repo.GetMonthCounts(bg)
			})
			if err != nil {
				return err
			}
			c.l0.SetMonthCounts(mc.([]repository.MonthCount))
			return nil
		})
	}

	for id := range plan.WarmPosts {
		postID := id
		run("post", func() error {
			p, err := c.load(bg, "post:"+strconv.FormatInt(postID, 10), func() (interface{}, error) {
				return c.repo.GetPostByID(bg, postID)
			})
			if err != nil {
				return err
			}
			c.l0.SetPost(p.(repository.Post))
			return nil
		})
	}

	for id := range plan.WarmPages {
		pageID := id
		run("page", func() error {
			p, err := c.load(bg, "page:"+strconv.FormatInt(pageID, 10), func() (interface{}, error) {
				return c.repo.GetPageByID(bg, pageID)
			})
			if err != nil {
				return err
			}
			c.l0.SetPage(p.(repository.Page))
			return nil
		})
	}

	wg.Wait()

	// WarmHomepage/WarmFeed/WarmSitemap do not pre-render L1 entries here;
	// the response path re-renders them on the next request.
	_ = plan.WarmHomepage
	_ = plan.WarmFeed
	_ = plan.WarmSitemap

	return int(warmed.Load())
}

func (c *Consumer) load(ctx context.Context, key string, fn func() (interface{}, error)) (interface{}, error) {
	if c.warm == nil {
		return fn()
	}
	return c.warm.Do(ctx, key, fn)
}

func (c *Consumer) warnFailure(entity string, err error) {
	c.log.Warn("warm failed for entity, continuing batch", cachelog.Fields{"entity": entity, "error": err.Error()})
}

// Loop runs ConsumeFull every AutoConsumeInterval until Stop is called.
// State machine: Idle -> (timer fires) -> Draining -> Planning -> Executing
// -> Idle.
func (c *Consumer) Loop() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		interval := c.cfg.AutoConsumeInterval
		if interval <= 0 {
			interval = 5 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-c.stopChan:
				return
			case <-ticker.C:
				c.ConsumeFull(context.Background())
			}
		}
	}()
}

// Stop cancels the background loop at the next iteration boundary and
// waits for it to exit.
func (c *Consumer) Stop() {
	close(c.stopChan)
	c.wg.Wait()
}
