package destino

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/eringen/destino/content"
)

// ContentCache is an in-memory cache of approved listings, posts and tags with TTL.
type ContentCache struct {
	mu       sync.RWMutex
	listings map[content.Kind][]content.Listing
	posts    []content.BlogPost
	tags     []string
	fetched  time.Time
	ttl      time.Duration
	store    *Store
}

// NewContentCache creates a ContentCache backed by the given Store.
func NewContentCache(s *Store, ttl time.Duration) *ContentCache {
	return &ContentCache{store: s, ttl: ttl}
}

func (c *ContentCache) valid() bool {
	return c.listings != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *ContentCache) Invalidate() {
	c.mu.Lock()
	c.listings = nil
	c.posts = nil
	c.tags = nil
	c.mu.Unlock()
}

func (c *ContentCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	listings := make(map[content.Kind][]content.Listing, len(content.ListingKinds))
	for _, kind := range content.ListingKinds {
		ls, err := c.store.ListApproved(ctx, kind)
		if err != nil {
			return err
		}
		listings[kind] = ls
	}
	posts, err := c.store.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	tags, err := c.store.ListTags(ctx)
	if err != nil {
		return err
	}
	c.listings = listings
	c.posts = posts
	c.tags = tags
	c.fetched = time.Now()
	return nil
}

// snapshot is a consistent view of the cached content.
type snapshot struct {
	listings map[content.Kind][]content.Listing
	posts    []content.BlogPost
	tags     []string
}

// ensureLoaded makes sure the cache is fresh and returns its contents, read
// under the same lock that checked them.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *ContentCache) ensureLoaded(ctx context.Context) (snapshot, error) {
	c.mu.RLock()
	if c.valid() {
		snap := snapshot{c.listings, c.posts, c.tags}
		c.mu.RUnlock()
		return snap, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return snapshot{}, err
	}
	return snapshot{c.listings, c.posts, c.tags}, nil
}

// ListListings returns the approved listings of kind.
func (c *ContentCache) ListListings(ctx context.Context, kind content.Kind) ([]content.Listing, error) {
	if !kind.IsListing() {
		return nil, content.ErrInvalidKind
	}
	snap, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return snap.listings[kind], nil
}

// GetListing returns a single approved listing from the cache.
func (c *ContentCache) GetListing(ctx context.Context, kind content.Kind, slug string) (content.Listing, error) {
	listings, err := c.ListListings(ctx, kind)
	if err != nil {
		return content.Listing{}, err
	}
	for _, l := range listings {
		if l.Slug == slug {
			return l, nil
		}
	}
	return content.Listing{}, ErrNotFound
}

// ListPosts returns approved posts, optionally filtered by tag.
func (c *ContentCache) ListPosts(ctx context.Context, tag string) ([]content.BlogPost, error) {
	snap, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	posts := snap.posts
	if tag == "" {
		return posts, nil
	}
	normalized := normalizeTag(tag)
	var filtered []content.BlogPost
	for _, p := range posts {
		for _, t := range p.Tags {
			if normalizeTag(t) == normalized {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered, nil
}

// ListTags returns all unique tags from approved posts.
func (c *ContentCache) ListTags(ctx context.Context) ([]string, error) {
	snap, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return snap.tags, nil
}

// GetPost returns a single approved post by slug from the cache.
func (c *ContentCache) GetPost(ctx context.Context, slug string) (content.BlogPost, error) {
	posts, err := c.ListPosts(ctx, "")
	if err != nil {
		return content.BlogPost{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return content.BlogPost{}, ErrNotFound
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
