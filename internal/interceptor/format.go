package interceptor

import (
	"net/http"
	"strings"

	"github.com/otero-labs/contentcache/internal/cachekeys"
)

// DetectFormat derives the OutputFormat for a request from its path suffix
// and, failing that, its Accept header. Non-GET requests are never passed
// to this function by the middleware.
func DetectFormat(r *http.Request) cachekeys.OutputFormat {
	path := r.URL.Path

	switch {
	case strings.HasSuffix(path, "/feed.xml") || strings.HasSuffix(path, "/atom.xml"):
		if strings.HasSuffix(path, "/atom.xml") {
			return cachekeys.FormatAtom
		}
		return cachekeys.FormatRSS
	case strings.HasSuffix(path, "/sitemap.xml"):
		return cachekeys.FormatSitemap
	case strings.HasSuffix(path, "/favicon.ico"):
		return cachekeys.FormatFavicon
	case strings.HasPrefix(path, "/api/"):
		return cachekeys.FormatJSON
	}

	accept := r.Header.Get("Accept")
	switch {
	case strings.Contains(accept, "application/json"):
		return cachekeys.FormatJSON
	case strings.Contains(accept, "application/rss+xml"):
		return cachekeys.FormatRSS
	case strings.Contains(accept, "application/atom+xml"):
		return cachekeys.FormatAtom
	}

	return cachekeys.FormatHTML
}

// IsCacheableNotFoundPath reports whether a 404 response on this path
// depends on repository/aggregate state the planner can invalidate, per
// the documented decision on cacheable 404s: post and page detail routes,
// and tag/month archive routes.
func IsCacheableNotFoundPath(path string) bool {
	switch {
	case strings.HasPrefix(path, "/posts/"):
		return true
	case strings.HasPrefix(path, "/pages/"):
		return true
	case strings.HasPrefix(path, "/tag/"):
		return true
	case strings.HasPrefix(path, "/archive/"):
		return true
	default:
		return false
	}
}
