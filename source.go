package destino

import (
	"context"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/prerender"
)

// contentSource reads approved content through the cache and SEO rows and
// blocks straight from the store, so admin edits to either show up at once.
type contentSource struct {
	cache *ContentCache
	store *Store
}

// Source returns the read side shared by the live pages, the live sitemap
// and an in-process prerender build.
func (a *App) Source() prerender.Source {
	return contentSource{cache: a.Cache, store: a.Store}
}

func (s contentSource) GetSEO(ctx context.Context, route string) (content.SEOEntry, error) {
	return s.store.GetSEO(ctx, route)
}

func (s contentSource) GetListing(ctx context.Context, kind content.Kind, slug string) (content.Listing, error) {
	return s.cache.GetListing(ctx, kind, slug)
}

func (s contentSource) GetPost(ctx context.Context, slug string) (content.BlogPost, error) {
	return s.cache.GetPost(ctx, slug)
}

func (s contentSource) ListBlocks(ctx context.Context, route string, visibleOnly bool) ([]content.ContentBlock, error) {
	return s.store.ListBlocks(ctx, route, visibleOnly)
}

func (s contentSource) ListApproved(ctx context.Context, kind content.Kind) ([]content.Listing, error) {
	return s.cache.ListListings(ctx, kind)
}

func (s contentSource) ListPosts(ctx context.Context, tag string) ([]content.BlogPost, error) {
	return s.cache.ListPosts(ctx, tag)
}
