package seo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/eringen/destino/content"
)

// Source is the content the resolver reads. *destino.Store implements it.
type Source interface {
	GetSEO(ctx context.Context, route string) (content.SEOEntry, error)
	GetListing(ctx context.Context, kind content.Kind, slug string) (content.Listing, error)
	GetPost(ctx context.Context, slug string) (content.BlogPost, error)
	ListBlocks(ctx context.Context, route string, visibleOnly bool) ([]content.ContentBlock, error)
}

// Resolver computes the metadata of any public route in priority order:
// explicit seo_metadata row, then the route's content record, then site defaults.
type Resolver struct {
	Site   Site
	Source Source
	// Titles names static pages, keyed by normalized route.
	Titles map[string]string
}

// DefaultTitles names the built-in static pages.
var DefaultTitles = map[string]string{
	"/about":   "About",
	"/contact": "Contact",
	"/privacy": "Privacy Policy",
	"/terms":   "Terms of Service",
}

// Resolve returns the metadata for route. Fetch failures never prevent a
// result: the affected layer falls back and the failures are returned joined
// alongside the metadata so callers can log them.
func (r *Resolver) Resolve(ctx context.Context, route string) (Meta, error) {
	route = content.NormalizeRoute(route)
	m, err := r.computed(ctx, route)

	entry, seoErr := r.Source.GetSEO(ctx, route)
	switch {
	case seoErr == nil:
		m = ApplyEntry(r.Site, m, entry)
	case errors.Is(seoErr, content.ErrNotFound):
	default:
		err = errors.Join(err, fmt.Errorf("seo row %s: %w", route, seoErr))
	}
	return m, err
}

func (r *Resolver) computed(ctx context.Context, route string) (Meta, error) {
	kind, slug := SplitRoute(route)
	switch {
	case kind == "":
		return r.page(ctx, route, r.Title(route))
	case slug == "":
		return r.page(ctx, route, kind.Label())
	case kind == content.KindBlog:
		p, err := r.Source.GetPost(ctx, slug)
		if err != nil {
			return Defaults(r.Site, route), fmt.Errorf("post %s: %w", slug, err)
		}
		return ForPost(r.Site, p), nil
	default:
		l, err := r.Source.GetListing(ctx, kind, slug)
		if err != nil {
			return Defaults(r.Site, route), fmt.Errorf("%s %s: %w", kind, slug, err)
		}
		return ForListing(r.Site, l), nil
	}
}

func (r *Resolver) page(ctx context.Context, route, title string) (Meta, error) {
	blocks, err := r.Source.ListBlocks(ctx, route, true)
	if err != nil {
		return ForPage(r.Site, route, title, nil), fmt.Errorf("blocks %s: %w", route, err)
	}
	return ForPage(r.Site, route, title, blocks), nil
}

// Title names a static page: a configured title, a built-in one, or the
// last path segment in title case.
func (r *Resolver) Title(route string) string {
	route = content.NormalizeRoute(route)
	if t, ok := r.Titles[route]; ok {
		return t
	}
	if t, ok := DefaultTitles[route]; ok {
		return t
	}
	last := route[strings.LastIndex(route, "/")+1:]
	words := strings.Fields(strings.ReplaceAll(last, "-", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// SplitRoute maps a route to the content kind and slug it displays.
// Routes outside any kind prefix return an empty kind; a kind's index page
// returns an empty slug.
func SplitRoute(route string) (content.Kind, string) {
	route = content.NormalizeRoute(route)
	for _, k := range content.Kinds {
		prefix := k.Prefix()
		if route == prefix {
			return k, ""
		}
		if rest, ok := strings.CutPrefix(route, prefix+"/"); ok && rest != "" && !strings.Contains(rest, "/") {
			return k, rest
		}
	}
	return "", ""
}
