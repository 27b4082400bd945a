// Package interceptor implements the read-side fast path for the response
// cache (L1): lookup, miss-fall-through with dependency collection, and
// capture-on-OK (or on a documented cacheable 404).
package interceptor

import (
	"bytes"
	"context"
	"net/http"

	"github.com/otero-labs/contentcache/internal/cachekeys"
	"github.com/otero-labs/contentcache/internal/cachelog"
	"github.com/otero-labs/contentcache/internal/depcollector"
	"github.com/otero-labs/contentcache/internal/l1store"
	"github.com/otero-labs/contentcache/internal/registry"
)

// Config configures the interceptor.
type Config struct {
	// Enabled gates the interceptor entirely; when false, requests pass
	// straight through to the inner handler with no lookup or capture.
	Enabled bool
}

// Interceptor wraps an http.Handler chain with L1 lookup/capture.
type Interceptor struct {
	log  *cachelog.Logger
	l1   *l1store.Store
	reg  *registry.Registry
	cfg  Config
}

// New creates an Interceptor.
func New(l1 *l1store.Store, reg *registry.Registry, cfg Config) *Interceptor {
	return &Interceptor{log: cachelog.New("interceptor"), l1: l1, reg: reg, cfg: cfg}
}

// Middleware returns the standard net/http middleware function. It is safe
// to mount over a chi.Router's public route group; admin routes should
// never be wrapped with it.
func (ic *Interceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ic.cfg.Enabled || r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		format := DetectFormat(r)
		key := cachekeys.L1Key{
			Format:    format,
			Path:      r.URL.Path,
			QueryHash: cachekeys.HashQuery(r.URL.RawQuery),
		}

		if entry, ok := ic.l1.Get(key); ok {
			writeEntry(w, entry)
			return
		}

		ctx := depcollector.WithScope(r.Context())
		rec := &captureWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		ic.maybeCapture(ctx, key, rec)
	})
}

func (ic *Interceptor) maybeCapture(ctx context.Context, key cachekeys.L1Key, rec *captureWriter) {
	cacheable := rec.statusCode == http.StatusOK ||
		(rec.statusCode == http.StatusNotFound && IsCacheableNotFoundPath(key.Path))
	if !cacheable {
		return
	}

	entry := l1store.Entry{
		Status: rec.statusCode,
		Header: rec.Header().Clone(),
		Body:   rec.buf.Bytes(),
	}

	if !ic.l1.Set(key, entry) {
		return
	}

	deps := depcollector.Collected(ctx)
	ic.reg.Register(key.CacheKey(), deps)
}

// writeEntry writes a captured snapshot directly to the client.
func writeEntry(w http.ResponseWriter, entry l1store.Entry) {
	h := w.Header()
	for k, v := range entry.Header {
		h[k] = v
	}
	w.WriteHeader(entry.Status)
	_, _ = w.Write(entry.Body)
}

// captureWriter buffers the response body (up to the store's own limit
// enforcement) while also recording the status code, so a 200/cacheable-404
// response can be captured into L1 after the inner handler completes.
type captureWriter struct {
	http.ResponseWriter
	statusCode int
	buf        bytes.Buffer
	wroteHead  bool
}

func (c *captureWriter) WriteHeader(status int) {
	c.statusCode = status
	c.wroteHead = true
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if !c.wroteHead {
		c.statusCode = http.StatusOK
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *captureWriter) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
