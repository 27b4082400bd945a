package interceptor

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/otero-labs/contentcache/internal/cachekeys"
	"github.com/otero-labs/contentcache/internal/depcollector"
	"github.com/otero-labs/contentcache/internal/l1store"
	"github.com/otero-labs/contentcache/internal/registry"
)

func newTestInterceptor() (*Interceptor, *l1store.Store, *registry.Registry) {
	reg := registry.New()
	l1 := l1store.New(l1store.Config{Capacity: 10, ResponseBodyLimitBytes: 1 << 20}, reg)
	return New(l1, reg, Config{Enabled: true}), l1, reg
}

// First request is a miss: the handler runs and the response is captured.
func TestMissCallsHandlerAndCaptures(t *testing.T) {
	ic, l1, _ := newTestInterceptor()

	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	})

	req := httptest.NewRequest(http.MethodGet, "/posts/a", nil)
	rr := httptest.NewRecorder()
	ic.Middleware(handler).ServeHTTP(rr, req)

	if calls != 1 {
		t.Fatalf("expected handler called once on miss, got %d", calls)
	}
	if rr.Body.String() != "hello" {
		t.Fatalf("expected body passed through, got %q", rr.Body.String())
	}
	if l1.Len() != 1 {
		t.Fatalf("expected captured entry in L1, len=%d", l1.Len())
	}
}

// Second identical request is a hit; the handler does not run again.
func TestHitServesWithoutCallingHandler(t *testing.T) {
	ic, _, _ := newTestInterceptor()

	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	})
	wrapped := ic.Middleware(handler)

	req1 := httptest.NewRequest(http.MethodGet, "/posts/a", nil)
	wrapped.ServeHTTP(httptest.NewRecorder(), req1)

	req2 := httptest.NewRequest(http.MethodGet, "/posts/a", nil)
	rr2 := httptest.NewRecorder()
	wrapped.ServeHTTP(rr2, req2)

	if calls != 1 {
		t.Fatalf("expected handler called exactly once across both requests, got %d", calls)
	}
	if rr2.Body.String() != "hello" {
		t.Fatalf("expected served-from-cache body to match, got %q", rr2.Body.String())
	}
}

// Non-GET requests bypass the cache entirely.
func TestNonGetBypassesCache(t *testing.T) {
	ic, l1, _ := newTestInterceptor()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/posts/a", nil)
	ic.Middleware(handler).ServeHTTP(httptest.NewRecorder(), req)

	if l1.Len() != 0 {
		t.Fatalf("expected POST requests to never populate L1, len=%d", l1.Len())
	}
}

// A disabled interceptor passes everything straight through.
func TestDisabledInterceptorBypasses(t *testing.T) {
	reg := registry.New()
	l1 := l1store.New(l1store.Config{Capacity: 10, ResponseBodyLimitBytes: 1 << 20}, reg)
	ic := New(l1, reg, Config{Enabled: false})

	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/posts/a", nil)
	ic.Middleware(handler).ServeHTTP(httptest.NewRecorder(), req)
	req2 := httptest.NewRequest(http.MethodGet, "/posts/a", nil)
	ic.Middleware(handler).ServeHTTP(httptest.NewRecorder(), req2)

	if calls != 2 {
		t.Fatalf("expected handler called on every request when disabled, got %d", calls)
	}
	if l1.Len() != 0 {
		t.Fatalf("expected no captures while disabled, len=%d", l1.Len())
	}
}

// A plain 404 on a non-cacheable path is never captured.
func TestPlainNotFoundIsNotCached(t *testing.T) {
	ic, l1, _ := newTestInterceptor()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/unknown/path", nil)
	ic.Middleware(handler).ServeHTTP(httptest.NewRecorder(), req)

	if l1.Len() != 0 {
		t.Fatalf("expected plain 404 on a non-cacheable path to not be captured, len=%d", l1.Len())
	}
}

// A 404 on a documented cacheable path (e.g. /posts/) is captured and
// served on the next identical request without re-invoking the handler.
func TestCacheableNotFoundIsCapturedAndReused(t *testing.T) {
	ic, l1, _ := newTestInterceptor()

	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	})
	wrapped := ic.Middleware(handler)

	req1 := httptest.NewRequest(http.MethodGet, "/posts/missing", nil)
	wrapped.ServeHTTP(httptest.NewRecorder(), req1)

	if l1.Len() != 1 {
		t.Fatalf("expected cacheable 404 to be captured, len=%d", l1.Len())
	}

	req2 := httptest.NewRequest(http.MethodGet, "/posts/missing", nil)
	rr2 := httptest.NewRecorder()
	wrapped.ServeHTTP(rr2, req2)

	if calls != 1 {
		t.Fatalf("expected handler not called again on the cached 404 hit, got %d calls", calls)
	}
	if rr2.Code != http.StatusNotFound {
		t.Fatalf("expected served 404 status preserved, got %d", rr2.Code)
	}
}

func TestMissRegistersCollectedDependencies(t *testing.T) {
	ic, _, reg := newTestInterceptor()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		depcollector.Record(r.Context(), cachekeys.PostSlug("a"))
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/posts/a", nil)
	ic.Middleware(handler).ServeHTTP(httptest.NewRecorder(), req)

	keys := reg.KeysForEntity(cachekeys.PostSlug("a"))
	if len(keys) != 1 {
		t.Fatalf("expected the captured response registered against PostSlug(a), got %v", keys)
	}
}
