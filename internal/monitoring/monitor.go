// Package monitoring aggregates cache outcome emissions into counters and a
// small set of threshold-based alerts, entirely in-process: it subscribes to
// cachelog's Sink interface instead of a pub/sub topic, since this module
// has no cross-process distribution to observe.
package monitoring

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/otero-labs/contentcache/internal/cachelog"
)

// Counters holds process-lifetime outcome totals per component.
type Counters struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Invalidations int64
	Warms       int64
}

// HitRate returns Hits / (Hits + Misses), or 0 if there have been no lookups.
func (c Counters) HitRate() float64 {
	total := c.Hits + c.Misses
	if total == 0 {
		return 0
	}
	return float64(c.Hits) / float64(total)
}

type componentCounters struct {
	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	invalidations atomic.Int64
	warms       atomic.Int64
}

// Collector aggregates cachelog outcome emissions into per-component and
// global counters. Registering it via cachelog.Subscribe wires every
// component's Emit calls into it without those components needing a direct
// reference to the collector.
type Collector struct {
	mu         sync.RWMutex
	perComponent map[string]*componentCounters
	total      componentCounters

	alertsMu sync.Mutex
	alerts   []Alert
	rules    []Rule
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	c := &Collector{
		perComponent: make(map[string]*componentCounters),
	}
	c.rules = []Rule{
		LowHitRateRule{Threshold: 0.5, MinLookups: 100},
		HighDropRule{Threshold: 50},
	}
	return c
}

// Observe implements cachelog.Sink.
func (c *Collector) Observe(component string, outcome cachelog.Outcome, fields cachelog.Fields) {
	cc := c.componentCounters(component)

	switch outcome {
	case cachelog.OutcomeHit:
		cc.hits.Add(1)
		c.total.hits.Add(1)
	case cachelog.OutcomeMiss:
		cc.misses.Add(1)
		c.total.misses.Add(1)
	case cachelog.OutcomeEvict:
		cc.evictions.Add(1)
		c.total.evictions.Add(1)
	case cachelog.OutcomeInvalidate:
		cc.invalidations.Add(1)
		c.total.invalidations.Add(1)
	case cachelog.OutcomeWarm:
		cc.warms.Add(1)
		c.total.warms.Add(1)
	}

	c.evaluateRules()
}

func (c *Collector) componentCounters(component string) *componentCounters {
	c.mu.RLock()
	cc, ok := c.perComponent[component]
	c.mu.RUnlock()
	if ok {
		return cc
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cc, ok := c.perComponent[component]; ok {
		return cc
	}
	cc = &componentCounters{}
	c.perComponent[component] = cc
	return cc
}

// Snapshot returns the current global counters.
func (c *Collector) Snapshot() Counters {
	return Counters{
		Hits:          c.total.hits.Load(),
		Misses:        c.total.misses.Load(),
		Evictions:     c.total.evictions.Load(),
		Invalidations: c.total.invalidations.Load(),
		Warms:         c.total.warms.Load(),
	}
}

// ComponentSnapshot returns the current counters for one component, or the
// zero value if no emissions have been observed for it.
func (c *Collector) ComponentSnapshot(component string) Counters {
	c.mu.RLock()
	cc, ok := c.perComponent[component]
	c.mu.RUnlock()
	if !ok {
		return Counters{}
	}
	return Counters{
		Hits:          cc.hits.Load(),
		Misses:        cc.misses.Load(),
		Evictions:     cc.evictions.Load(),
		Invalidations: cc.invalidations.Load(),
		Warms:         cc.warms.Load(),
	}
}

// Alert is a threshold breach recorded by Collector, kept until explicitly
// cleared by a caller inspecting ActiveAlerts.
type Alert struct {
	Rule      string
	Message   string
	Value     float64
	Threshold float64
	At        time.Time
}

// Rule evaluates the global counters and returns a non-nil Alert if its
// condition is currently breached.
type Rule interface {
	Name() string
	Evaluate(snapshot Counters) *Alert
}

// LowHitRateRule fires once the combined L0/L1 hit rate drops below
// Threshold, but only after MinLookups total lookups have been observed, to
// avoid noisy alerts during cold start.
type LowHitRateRule struct {
	Threshold  float64
	MinLookups int64
}

func (r LowHitRateRule) Name() string { return "low_hit_rate" }

func (r LowHitRateRule) Evaluate(s Counters) *Alert {
	if s.Hits+s.Misses < r.MinLookups {
		return nil
	}
	rate := s.HitRate()
	if rate >= r.Threshold {
		return nil
	}
	return &Alert{
		Rule:      r.Name(),
		Message:   "cache hit rate below threshold",
		Value:     rate,
		Threshold: r.Threshold,
	}
}

// HighDropRule fires once the global eviction count crosses Threshold. The
// event queue reports each dropped event as an eviction under the
// "cacheevents" component, but the rule reads the total across all
// components, so L0 and L1 LRU evictions count toward it as well.
type HighDropRule struct {
	Threshold int64
}

func (r HighDropRule) Name() string { return "high_event_drop" }

func (r HighDropRule) Evaluate(s Counters) *Alert {
	if s.Evictions < r.Threshold {
		return nil
	}
	return &Alert{
		Rule:      r.Name(),
		Message:   "event queue eviction count crossed threshold",
		Value:     float64(s.Evictions),
		Threshold: float64(r.Threshold),
	}
}

func (c *Collector) evaluateRules() {
	snapshot := c.Snapshot()

	c.alertsMu.Lock()
	defer c.alertsMu.Unlock()

	active := make(map[string]bool, len(c.alerts))
	for _, a := range c.alerts {
		active[a.Rule] = true
	}

	for _, rule := range c.rules {
		alert := rule.Evaluate(snapshot)
		if alert == nil {
			continue
		}
		if active[rule.Name()] {
			continue
		}
		alert.At = time.Now()
		c.alerts = append(c.alerts, *alert)
	}
}

// ActiveAlerts returns a copy of currently recorded alerts.
func (c *Collector) ActiveAlerts() []Alert {
	c.alertsMu.Lock()
	defer c.alertsMu.Unlock()
	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// ClearAlerts discards all recorded alerts, letting rules re-fire if their
// condition is still breached on the next Observe call.
func (c *Collector) ClearAlerts() {
	c.alertsMu.Lock()
	defer c.alertsMu.Unlock()
	c.alerts = nil
}
