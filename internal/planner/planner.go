// Package planner collapses a drained batch of events into a single
// ConsumptionPlan: the entities to invalidate and the warm actions to take.
// The planner is a pure function of (id, epoch, kind) tuples — it holds no
// state and produces the same plan for the same input regardless of input
// order, as long as per-event epochs are preserved.
package planner

import (
	"sort"

	"github.com/otero-labs/contentcache/internal/cacheevents"
	"github.com/otero-labs/contentcache/internal/cachekeys"
)

// ConsumptionPlan is the collapsed invalidate-then-warm action set for a
// drained event batch.
type ConsumptionPlan struct {
	InvalidateEntities map[cachekeys.EntityKey]struct{}

	WarmSiteSettings    bool
	WarmNavigation      bool
	WarmNavigationPages bool
	WarmAggregations    bool
	WarmHomepage        bool
	WarmFeed            bool
	WarmSitemap         bool

	WarmPosts map[int64]struct{}
	WarmPages map[int64]struct{}
}

func newPlan() *ConsumptionPlan {
	return &ConsumptionPlan{
		InvalidateEntities: make(map[cachekeys.EntityKey]struct{}),
		WarmPosts:          make(map[int64]struct{}),
		WarmPages:          make(map[int64]struct{}),
	}
}

func (p *ConsumptionPlan) invalidate(e cachekeys.EntityKey) {
	p.InvalidateEntities[e] = struct{}{}
}

// winner tracks, per dedup identity, the event that should determine that
// identity's effect on the plan: highest epoch wins, delete beats upsert on
// an epoch tie.
type winner struct {
	event cacheevents.Event
}

// Plan builds a ConsumptionPlan from a batch of events, applying the rules
// in spec order:
//  1. Deduplicate by event id.
//  2. Per dedup identity, keep the event with the highest epoch; delete
//     beats upsert at an equal epoch.
//  3. Apply each surviving event's invalidation/warm effects.
func Plan(events []cacheevents.Event) *ConsumptionPlan {
	plan := newPlan()

	// Step 1: dedup by event id, keeping the first occurrence's identity
	// but letting later fields (epoch should be the same for a replayed
	// id, but guard against divergence by simply taking the first seen).
	seenIDs := make(map[string]struct{}, len(events))
	deduped := make([]cacheevents.Event, 0, len(events))
	for _, e := range events {
		if e.ID != "" {
			if _, ok := seenIDs[e.ID]; ok {
				continue
			}
			seenIDs[e.ID] = struct{}{}
		}
		deduped = append(deduped, e)
	}

	// Step 2: resolve conflicts per dedup identity.
	winners := make(map[cacheevents.DedupKey]winner)
	order := make([]cacheevents.DedupKey, 0, len(deduped))
	for _, e := range deduped {
		dk := e.Dedup()
		cur, ok := winners[dk]
		if !ok {
			winners[dk] = winner{event: e}
			order = append(order, dk)
			continue
		}
		if beats(e, cur.event) {
			winners[dk] = winner{event: e}
		}
	}

	// Deterministic application order: by dedup-key first-seen order, which
	// in turn only depends on the (id, epoch, kind) tuples of the input,
	// not on the slice's original order (two inputs with the same set of
	// tuples sort identically here because ties are broken by epoch below).
	sort.SliceStable(order, func(i, j int) bool {
		return winners[order[i]].event.Epoch < winners[order[j]].event.Epoch
	})

	for _, dk := range order {
		apply(plan, winners[dk].event)
	}

	return plan
}

// beats reports whether candidate should replace incumbent as the winner
// for their shared dedup identity.
func beats(candidate, incumbent cacheevents.Event) bool {
	if candidate.Epoch != incumbent.Epoch {
		return candidate.Epoch > incumbent.Epoch
	}
	// Equal epoch: delete wins the tiebreak over upsert.
	return isDelete(candidate.Kind) && !isDelete(incumbent.Kind)
}

func isDelete(k cacheevents.Kind) bool {
	return k == cacheevents.KindPostDeleted || k == cacheevents.KindPageDeleted || k == cacheevents.KindApiKeyRevoked
}

func apply(plan *ConsumptionPlan, e cacheevents.Event) {
	switch e.Kind {
	case cacheevents.KindPostUpserted, cacheevents.KindPostDeleted:
		plan.invalidate(cachekeys.Post(e.ID64))
		plan.invalidate(cachekeys.PostSlug(e.Slug))
		plan.invalidate(cachekeys.PostsIndex())
		plan.invalidate(cachekeys.PostAggTags())
		plan.invalidate(cachekeys.PostAggMonths())
		plan.invalidate(cachekeys.Feed())
		plan.invalidate(cachekeys.Sitemap())
		plan.WarmAggregations = true
		plan.WarmHomepage = true
		plan.WarmFeed = true
		plan.WarmSitemap = true
		if e.Kind == cacheevents.KindPostUpserted {
			plan.WarmPosts[e.ID64] = struct{}{}
		}

	case cacheevents.KindPageUpserted, cacheevents.KindPageDeleted:
		plan.invalidate(cachekeys.Page(e.ID64))
		plan.invalidate(cachekeys.PageSlug(e.Slug))
		plan.invalidate(cachekeys.Sitemap())
		plan.WarmSitemap = true
		if e.Kind == cacheevents.KindPageUpserted {
			plan.WarmPages[e.ID64] = struct{}{}
		}

	case cacheevents.KindNavigationUpdated:
		plan.invalidate(cachekeys.Navigation())
		plan.WarmNavigation = true
		plan.WarmNavigationPages = true

	case cacheevents.KindSiteSettingsUpdated:
		plan.invalidate(cachekeys.SiteSettings())
		plan.WarmSiteSettings = true

	case cacheevents.KindApiKeyUpserted, cacheevents.KindApiKeyRevoked:
		plan.invalidate(cachekeys.ApiKey(e.Prefix))

	case cacheevents.KindWarmupOnStartup:
		plan.WarmSiteSettings = true
		plan.WarmNavigation = true
		plan.WarmNavigationPages = true
		plan.WarmAggregations = true
		plan.WarmHomepage = true
		plan.WarmFeed = true
		plan.WarmSitemap = true
	}
}
