// Package seo synthesizes per-route <head> metadata (title, description,
// Open Graph, Twitter card, canonical URL and JSON-LD structured data) and
// injects it into the shared HTML shell. The live server and the prerender
// pipeline both go through this package so a page's head is identical in
// both outputs.
package seo

import (
	"net/url"
	"path"
	"strings"
)

// Site carries the site-wide values every page's metadata falls back to.
type Site struct {
	Name           string
	URL            string
	Description    string
	DefaultImage   string
	Language       string // html lang, e.g. "en"
	Locale         string // og:locale, e.g. "en_US"
	Twitter        string // twitter:site handle
	Author         string
	TitleSeparator string
}

func (s Site) separator() string {
	if s.TitleSeparator == "" {
		return " | "
	}
	return s.TitleSeparator
}

// FormatTitle appends the site name to title. An empty title, or one equal to
// the site name, yields the site name alone.
func (s Site) FormatTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" || title == s.Name || s.Name == "" {
		if title == "" {
			return s.Name
		}
		return title
	}
	return title + s.separator() + s.Name
}

// AbsoluteURL resolves ref against the site URL. Absolute refs are returned unchanged.
func (s Site) AbsoluteURL(ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base, err := url.Parse(s.URL)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// CanonicalURL returns the canonical absolute URL of a route.
func (s Site) CanonicalURL(route string) string {
	route = strings.Trim(route, "/")
	if route == "" {
		return BuildURL(s.URL, "/")
	}
	return BuildURL(s.URL, route)
}
