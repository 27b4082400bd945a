// Package repository defines the domain entity shapes and the read-side
// collaborator interfaces the cache sits in front of. The persistence layer
// itself — whatever backs these reads — is out of scope for this module;
// only the shapes and interfaces live here, plus an in-memory fake used by
// tests and the demo binary.
package repository

import "time"

// Post is a published (or draft) content item.
type Post struct {
	ID        int64
	Slug      string
	Title     string
	Body      string
	Tags      []string
	Status    string // "published", "draft"
	Month     string // "2026-07" token used for month-archive filtering
	UpdatedAt time.Time
}

// Page is a standalone content page (not part of the chronological feed).
type Page struct {
	ID        int64
	Slug      string
	Title     string
	Body      string
	UpdatedAt time.Time
}

// SiteSettings is the singleton site configuration record.
type SiteSettings struct {
	Title       string
	Description string
	BaseURL     string
}

// NavItem is one entry in the site navigation.
type NavItem struct {
	Label        string
	Href         string
	InternalPage int64 // 0 if the destination isn't an internal page.
}

// Navigation is the singleton ordered list of visible navigation entries.
type Navigation struct {
	Items []NavItem
}

// TagCount pairs a tag slug with the number of published posts carrying it.
type TagCount struct {
	Slug  string
	Count int
}

// MonthCount pairs a month token with the number of published posts in it.
type MonthCount struct {
	Token string
	Count int
}

// ApiKey is an admin-issued API credential looked up by its stable prefix.
type ApiKey struct {
	Prefix  string
	Name    string
	Revoked bool
}

// PostListPage is one page of a filtered, cursor-paginated post list.
type PostListPage struct {
	Posts      []Post
	NextCursor string
	HasMore    bool
}
