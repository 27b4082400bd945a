package repository

import (
	"context"

	"github.com/otero-labs/contentcache/internal/cachekeys"
)

// Repository is the source-of-truth collaborator the cache loads from on a
// miss and during warming. It is an external collaborator: this module
// never implements its production backing (a database, a headless CMS,
// whatever), only this interface and an in-memory fake for tests.
type Repository interface {
	GetSiteSettings(ctx context.Context) (SiteSettings, error)
	GetNavigation(ctx context.Context) (Navigation, error)
	GetTagCounts(ctx context.Context) ([]TagCount, error)
	GetMonthCounts(ctx context.Context) ([]MonthCount, error)

	GetPostByID(ctx context.Context, id int64) (Post, error)
	GetPostBySlug(ctx context.Context, slug string) (Post, error)
	GetPageByID(ctx context.Context, id int64) (Page, error)
	GetPageBySlug(ctx context.Context, slug string) (Page, error)
	GetApiKeyByPrefix(ctx context.Context, prefix string) (ApiKey, error)

	ListPosts(ctx context.Context, filter cachekeys.PostFilter, cursor cachekeys.PostCursor) (PostListPage, error)
}

// ErrNotFound is returned by Repository methods when the requested entity
// does not exist.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "repository: not found" }
