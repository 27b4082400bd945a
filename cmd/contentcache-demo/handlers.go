package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/otero-labs/contentcache/internal/cachekeys"
	"github.com/otero-labs/contentcache/internal/depcollector"
	"github.com/otero-labs/contentcache/internal/l0store"
	"github.com/otero-labs/contentcache/internal/repository"
)

// server holds the dependencies public and admin handlers read from. The
// L0 read path always consults l0 first and records the dependency it
// consumed on the request's collector scope, whether the lookup hits or
// misses, so cacheable 404s register the same way cacheable 200s do.
type server struct {
	l0   *l0store.Store
	repo repository.Repository
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	depcollector.Record(r.Context(), cachekeys.SiteSettings())
	depcollector.Record(r.Context(), cachekeys.Navigation())

	settings, ok := s.l0.GetSiteSettings()
	if !ok {
		loaded, err := s.repo.GetSiteSettings(r.Context())
		if err != nil {
			http.Error(w, "failed to load site settings", http.StatusInternalServerError)
			return
		}
		settings = loaded
		s.l0.SetSiteSettings(settings)
	}

	nav, ok := s.l0.GetNavigation()
	if !ok {
		loaded, err := s.repo.GetNavigation(r.Context())
		if err != nil {
			http.Error(w, "failed to load navigation", http.StatusInternalServerError)
			return
		}
		nav = loaded
		s.l0.SetNavigation(nav)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"site":       settings,
		"navigation": nav,
	})
}

func (s *server) handlePostBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	depcollector.Record(r.Context(), cachekeys.PostSlug(slug))

	post, ok := s.l0.GetPostBySlug(slug)
	if !ok {
		loaded, err := s.repo.GetPostBySlug(r.Context(), slug)
		if err != nil {
			if err == repository.ErrNotFound {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "failed to load post", http.StatusInternalServerError)
			return
		}
		post = loaded
		s.l0.SetPost(post)
	}

	writeJSON(w, http.StatusOK, post)
}

func (s *server) handlePageBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	depcollector.Record(r.Context(), cachekeys.PageSlug(slug))

	page, ok := s.l0.GetPageBySlug(slug)
	if !ok {
		loaded, err := s.repo.GetPageBySlug(r.Context(), slug)
		if err != nil {
			if err == repository.ErrNotFound {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "failed to load page", http.StatusInternalServerError)
			return
		}
		page = loaded
		s.l0.SetPage(page)
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	depcollector.Record(r.Context(), cachekeys.PostsIndex())
	depcollector.Record(r.Context(), cachekeys.PostAggTags())
	depcollector.Record(r.Context(), cachekeys.PostAggMonths())

	filter := cachekeys.PostFilter{
		TagSlug:    r.URL.Query().Get("tag"),
		MonthToken: r.URL.Query().Get("month"),
		SearchSubstring: r.URL.Query().Get("q"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Statuses = strings.Split(status, ",")
	} else {
		filter.Statuses = []string{"published"}
	}

	var cursor cachekeys.PostCursor
	if last := r.URL.Query().Get("cursor"); last != "" {
		if id, err := strconv.ParseInt(last, 10, 64); err == nil {
			cursor.TiebreakerID = id
		}
	}

	key := cachekeys.L0PostListKey(cachekeys.HashFilter(filter), cachekeys.HashCursor(cursor))
	page, ok := s.l0.GetPostList(key)
	if !ok {
		loaded, err := s.repo.ListPosts(r.Context(), filter, cursor)
		if err != nil {
			http.Error(w, "failed to list posts", http.StatusInternalServerError)
			return
		}
		page = loaded
		s.l0.SetPostList(key, page)
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *server) handleTagCounts(w http.ResponseWriter, r *http.Request) {
	depcollector.Record(r.Context(), cachekeys.PostAggTags())

	counts, ok := s.l0.GetTagCounts()
	if !ok {
		loaded, err := s.repo.GetTagCounts(r.Context())
		if err != nil {
			http.Error(w, "failed to load tag counts", http.StatusInternalServerError)
			return
		}
		counts = loaded
		s.l0.SetTagCounts(counts)
	}

	writeJSON(w, http.StatusOK, counts)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}
