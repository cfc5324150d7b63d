// Package prerender enumerates the site's public routes, renders each one
// through a Renderer, injects the route's SEO head into the shared shell and
// writes one HTML file per route, followed by the sitemap and robots.txt.
package prerender

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/seo"
	"github.com/eringen/destino/sitemap"
)

// KindPage marks routes that are not backed by a content record.
const KindPage content.Kind = "page"

// Route is one path to prerender.
type Route struct {
	Path       string
	Kind       content.Kind
	Slug       string
	LastMod    string
	Priority   float64
	ChangeFreq string
	NoIndex    bool
}

// StaticRoute configures a fixed path. Zero Priority and empty ChangeFreq
// take the defaults for the path's position in the site.
type StaticRoute struct {
	Path       string  `yaml:"path"`
	Priority   float64 `yaml:"priority"`
	ChangeFreq string  `yaml:"changefreq"`
	NoIndex    bool    `yaml:"noindex"`
}

// DefaultStaticRoutes are rendered when no static routes are configured.
var DefaultStaticRoutes = []StaticRoute{
	{Path: "/"},
	{Path: "/hotels"},
	{Path: "/restaurants"},
	{Path: "/events"},
	{Path: "/activities"},
	{Path: "/blog"},
	{Path: "/about"},
	{Path: "/contact"},
	{Path: "/privacy"},
	{Path: "/terms"},
}

// DefaultKinds are the kinds whose records are enumerated when none are configured.
var DefaultKinds = []content.Kind{
	content.KindHotel,
	content.KindRestaurant,
	content.KindEvent,
	content.KindActivity,
	content.KindBlog,
}

// Source is everything the pipeline reads from the content store.
type Source interface {
	seo.Source
	ListApproved(ctx context.Context, kind content.Kind) ([]content.Listing, error)
	ListPosts(ctx context.Context, tag string) ([]content.BlogPost, error)
}

// ValidatePath rejects paths that cannot be written as a static file.
func ValidatePath(path string) error {
	switch {
	case path == "":
		return errors.New("path cannot be empty")
	case !strings.HasPrefix(path, "/"):
		return errors.New("path must start with /")
	case strings.Contains(path, "?"):
		return errors.New("path cannot contain query string")
	case strings.Contains(path, "#"):
		return errors.New("path cannot contain fragment")
	case strings.Contains(path, ".."):
		return errors.New("path cannot contain parent directory references")
	case strings.Contains(path, "*"), strings.Contains(path, ":"):
		return errors.New("path cannot contain wildcards or parameters")
	}
	return nil
}

// Enumerate returns the static routes in order followed by one route per
// approved record of each kind. Paths are normalized and the first
// occurrence of a duplicate wins. A route is noindex when its static entry
// or its seo_metadata row says so.
func Enumerate(ctx context.Context, src Source, static []StaticRoute, kinds []content.Kind) ([]Route, error) {
	var routes []Route
	seen := make(map[string]struct{})
	add := func(r Route) error {
		if err := ValidatePath(r.Path); err != nil {
			return fmt.Errorf("route %q: %w", r.Path, err)
		}
		r.Path = content.NormalizeRoute(r.Path)
		if _, dup := seen[r.Path]; dup {
			return nil
		}
		seen[r.Path] = struct{}{}
		entry, err := src.GetSEO(ctx, r.Path)
		switch {
		case err == nil:
			r.NoIndex = r.NoIndex || entry.NoIndex
		case errors.Is(err, content.ErrNotFound):
		default:
			return fmt.Errorf("seo row %s: %w", r.Path, err)
		}
		if r.Priority == 0 {
			r.Priority = defaultPriority(r)
		}
		if r.ChangeFreq == "" {
			r.ChangeFreq = defaultChangeFreq(r)
		}
		routes = append(routes, r)
		return nil
	}

	for _, s := range static {
		kind, slug := seo.SplitRoute(s.Path)
		if kind == "" {
			kind = KindPage
		}
		r := Route{Path: s.Path, Kind: kind, Slug: slug, Priority: s.Priority, ChangeFreq: s.ChangeFreq, NoIndex: s.NoIndex}
		if err := add(r); err != nil {
			return nil, err
		}
	}

	for _, kind := range kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("enumerate %q: %w", kind, content.ErrInvalidKind)
		}
		if kind == content.KindBlog {
			posts, err := src.ListPosts(ctx, "")
			if err != nil {
				return nil, fmt.Errorf("list posts: %w", err)
			}
			for _, p := range posts {
				if !p.Published() {
					continue
				}
				if err := add(Route{Path: p.Path(), Kind: kind, Slug: p.Slug, LastMod: p.Date}); err != nil {
					return nil, err
				}
			}
			continue
		}
		listings, err := src.ListApproved(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		for _, l := range listings {
			if !l.Approved() {
				continue
			}
			if err := add(Route{Path: l.Path(), Kind: kind, Slug: l.Slug, LastMod: l.UpdatedAt}); err != nil {
				return nil, err
			}
		}
	}
	return routes, nil
}

func isIndex(r Route) bool {
	return r.Kind.Valid() && r.Slug == "" && r.Path == r.Kind.Prefix()
}

func defaultPriority(r Route) float64 {
	switch {
	case r.Path == "/":
		return 1.0
	case isIndex(r):
		return 0.8
	case r.Slug != "":
		return 0.6
	}
	return 0.5
}

func defaultChangeFreq(r Route) string {
	switch {
	case r.Path == "/", isIndex(r):
		return "daily"
	case r.Slug != "":
		return "weekly"
	}
	return "monthly"
}

// Sitemap converts the route to its sitemap entry.
func (r Route) Sitemap() sitemap.Route {
	return sitemap.Route{
		Path:       r.Path,
		LastMod:    r.LastMod,
		ChangeFreq: r.ChangeFreq,
		Priority:   r.Priority,
		NoIndex:    r.NoIndex,
	}
}

// SitemapRoutes converts routes to sitemap entries.
func SitemapRoutes(routes []Route) []sitemap.Route {
	out := make([]sitemap.Route, len(routes))
	for i, r := range routes {
		out[i] = r.Sitemap()
	}
	return out
}
