package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/otero-labs/contentcache/internal/cacheevents"
	"github.com/otero-labs/contentcache/internal/repository"
	"github.com/otero-labs/contentcache/internal/trigger"
)

// adminServer wraps the fake repository with the write-side handlers that
// publish cache events after each mutation. Admin routes are never wrapped
// by the L1 interceptor.
type adminServer struct {
	repo *repository.Fake
	trig *trigger.Trigger
}

type postPayload struct {
	ID     int64    `json:"id"`
	Slug   string   `json:"slug"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Tags   []string `json:"tags"`
	Status string   `json:"status"`
	Month  string   `json:"month"`
}

func (a *adminServer) handlePutPost(w http.ResponseWriter, r *http.Request) {
	var payload postPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	a.repo.PutPost(repository.Post{
		ID:        payload.ID,
		Slug:      payload.Slug,
		Title:     payload.Title,
		Body:      payload.Body,
		Tags:      payload.Tags,
		Status:    payload.Status,
		Month:     payload.Month,
		UpdatedAt: time.Now(),
	})

	a.trig.Trigger(r.Context(), cacheevents.PostUpserted(uuid.NewString(), payload.ID, payload.Slug), true)
	w.WriteHeader(http.StatusNoContent)
}

func (a *adminServer) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid post id", http.StatusBadRequest)
		return
	}

	post, lookupErr := a.repo.GetPostByID(r.Context(), id)
	a.repo.DeletePost(id)

	slug := ""
	if lookupErr == nil {
		slug = post.Slug
	}
	a.trig.Trigger(r.Context(), cacheevents.PostDeleted(uuid.NewString(), id, slug), true)
	w.WriteHeader(http.StatusNoContent)
}

type pagePayload struct {
	ID    int64  `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (a *adminServer) handlePutPage(w http.ResponseWriter, r *http.Request) {
	var payload pagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	a.repo.PutPage(repository.Page{
		ID:        payload.ID,
		Slug:      payload.Slug,
		Title:     payload.Title,
		Body:      payload.Body,
		UpdatedAt: time.Now(),
	})

	a.trig.Trigger(r.Context(), cacheevents.PageUpserted(uuid.NewString(), payload.ID, payload.Slug), true)
	w.WriteHeader(http.StatusNoContent)
}

func (a *adminServer) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid page id", http.StatusBadRequest)
		return
	}

	page, lookupErr := a.repo.GetPageByID(r.Context(), id)
	a.repo.DeletePage(id)

	slug := ""
	if lookupErr == nil {
		slug = page.Slug
	}
	a.trig.Trigger(r.Context(), cacheevents.PageDeleted(uuid.NewString(), id, slug), true)
	w.WriteHeader(http.StatusNoContent)
}

type settingsPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	BaseURL     string `json:"base_url"`
}

func (a *adminServer) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	a.repo.SetSiteSettings(repository.SiteSettings{
		Title:       payload.Title,
		Description: payload.Description,
		BaseURL:     payload.BaseURL,
	})

	a.trig.Trigger(r.Context(), cacheevents.SiteSettingsUpdated(uuid.NewString()), true)
	w.WriteHeader(http.StatusNoContent)
}

type navPayload struct {
	Items []struct {
		Label        string `json:"label"`
		Href         string `json:"href"`
		InternalPage int64  `json:"internal_page"`
	} `json:"items"`
}

func (a *adminServer) handlePutNavigation(w http.ResponseWriter, r *http.Request) {
	var payload navPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	items := make([]repository.NavItem, 0, len(payload.Items))
	for _, it := range payload.Items {
		items = append(items, repository.NavItem{Label: it.Label, Href: it.Href, InternalPage: it.InternalPage})
	}
	a.repo.SetNavigation(repository.Navigation{Items: items})

	a.trig.Trigger(r.Context(), cacheevents.NavigationUpdated(uuid.NewString()), true)
	w.WriteHeader(http.StatusNoContent)
}

type apiKeyPayload struct {
	Prefix string `json:"prefix"`
	Name   string `json:"name"`
}

func (a *adminServer) handlePutApiKey(w http.ResponseWriter, r *http.Request) {
	var payload apiKeyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	a.repo.PutApiKey(repository.ApiKey{Prefix: payload.Prefix, Name: payload.Name})
	a.trig.Trigger(r.Context(), cacheevents.ApiKeyUpserted(uuid.NewString(), payload.Prefix), true)
	w.WriteHeader(http.StatusNoContent)
}

func (a *adminServer) handleRevokeApiKey(w http.ResponseWriter, r *http.Request) {
	prefix := chi.URLParam(r, "prefix")
	a.trig.Trigger(r.Context(), cacheevents.ApiKeyRevoked(uuid.NewString(), prefix), true)
	w.WriteHeader(http.StatusNoContent)
}
