package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/otero-labs/contentcache/internal/cachekeys"
	"github.com/otero-labs/contentcache/internal/depcollector"
)

// handleFeed and handleSitemap are deliberately not L0-backed: they read
// straight from the repository on every miss and rely entirely on the L1
// response cache (interceptor) for repeat-request savings, per the
// documented decision not to eagerly pre-render these on warm.
func (s *server) handleFeed(w http.ResponseWriter, r *http.Request) {
	depcollector.Record(r.Context(), cachekeys.Feed())
	depcollector.Record(r.Context(), cachekeys.PostsIndex())

	page, err := s.repo.ListPosts(r.Context(), defaultFeedFilter(), cachekeys.PostCursor{})
	if err != nil {
		http.Error(w, "failed to build feed", http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<rss version=\"2.0\"><channel>\n")
	for _, p := range page.Posts {
		fmt.Fprintf(&b, "<item><title>%s</title><link>/posts/%s</link></item>\n", p.Title, p.Slug)
	}
	b.WriteString("</channel></rss>\n")

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

func (s *server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	depcollector.Record(r.Context(), cachekeys.Sitemap())
	depcollector.Record(r.Context(), cachekeys.PostsIndex())

	page, err := s.repo.ListPosts(r.Context(), defaultFeedFilter(), cachekeys.PostCursor{})
	if err != nil {
		http.Error(w, "failed to build sitemap", http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<urlset>\n")
	for _, p := range page.Posts {
		fmt.Fprintf(&b, "<url><loc>/posts/%s</loc></url>\n", p.Slug)
	}
	b.WriteString("</urlset>\n")

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

func defaultFeedFilter() cachekeys.PostFilter {
	return cachekeys.PostFilter{Statuses: []string{"published"}}
}
