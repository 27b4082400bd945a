package monitoring

import (
	"testing"

	"github.com/otero-labs/contentcache/internal/cachelog"
)

func TestObserveAggregatesPerComponentAndGlobal(t *testing.T) {
	c := NewCollector()

	c.Observe("l0store", cachelog.OutcomeHit, nil)
	c.Observe("l0store", cachelog.OutcomeMiss, nil)
	c.Observe("l1store", cachelog.OutcomeHit, nil)
	c.Observe("consumer", cachelog.OutcomeInvalidate, nil)
	c.Observe("consumer", cachelog.OutcomeWarm, nil)
	c.Observe("cacheevents", cachelog.OutcomeEvict, nil)

	total := c.Snapshot()
	if total.Hits != 2 || total.Misses != 1 || total.Evictions != 1 || total.Invalidations != 1 || total.Warms != 1 {
		t.Fatalf("unexpected global counters: %+v", total)
	}

	l0 := c.ComponentSnapshot("l0store")
	if l0.Hits != 1 || l0.Misses != 1 {
		t.Fatalf("unexpected l0store counters: %+v", l0)
	}
	if unknown := c.ComponentSnapshot("nope"); unknown != (Counters{}) {
		t.Fatalf("expected zero counters for an unobserved component, got %+v", unknown)
	}
}

func TestHitRate(t *testing.T) {
	if rate := (Counters{}).HitRate(); rate != 0 {
		t.Fatalf("expected 0 hit rate with no lookups, got %v", rate)
	}
	if rate := (Counters{Hits: 3, Misses: 1}).HitRate(); rate != 0.75 {
		t.Fatalf("expected 0.75, got %v", rate)
	}
}

func TestLowHitRateAlertWaitsForMinLookups(t *testing.T) {
	c := NewCollector()

	for i := 0; i < 99; i++ {
		c.Observe("l1store", cachelog.OutcomeMiss, nil)
	}
	if alerts := c.ActiveAlerts(); len(alerts) != 0 {
		t.Fatalf("expected no alert before the minimum lookup count, got %v", alerts)
	}

	c.Observe("l1store", cachelog.OutcomeMiss, nil)
	alerts := c.ActiveAlerts()
	if len(alerts) != 1 || alerts[0].Rule != "low_hit_rate" {
		t.Fatalf("expected exactly the low_hit_rate alert once lookups cross the floor, got %v", alerts)
	}
}

func TestAlertNotDuplicatedWhileActive(t *testing.T) {
	c := NewCollector()

	for i := 0; i < 200; i++ {
		c.Observe("l1store", cachelog.OutcomeMiss, nil)
	}
	if alerts := c.ActiveAlerts(); len(alerts) != 1 {
		t.Fatalf("expected a single active alert despite repeated breaches, got %d", len(alerts))
	}
}

func TestClearAlertsAllowsRefire(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 100; i++ {
		c.Observe("l1store", cachelog.OutcomeMiss, nil)
	}
	if len(c.ActiveAlerts()) != 1 {
		t.Fatalf("expected initial alert")
	}

	c.ClearAlerts()
	if len(c.ActiveAlerts()) != 0 {
		t.Fatalf("expected alerts cleared")
	}

	c.Observe("l1store", cachelog.OutcomeMiss, nil)
	if len(c.ActiveAlerts()) != 1 {
		t.Fatalf("expected the still-breached rule to re-fire after clearing")
	}
}

func TestHighDropRuleFiresOnSustainedEvictions(t *testing.T) {
	c := NewCollector()

	for i := 0; i < 50; i++ {
		c.Observe("cacheevents", cachelog.OutcomeEvict, nil)
	}

	found := false
	for _, a := range c.ActiveAlerts() {
		if a.Rule == "high_event_drop" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected high_event_drop alert after sustained evictions, got %v", c.ActiveAlerts())
	}
}
