package seo

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/markdown"
)

// MaxDescription is the rune limit applied to synthesized descriptions.
const MaxDescription = 160

// RobotsNoIndex is the robots directive written for routes flagged noindex.
const RobotsNoIndex = "noindex, nofollow"

// Meta is the complete <head> metadata of one route.
type Meta struct {
	Title       string
	Description string
	Keywords    string
	Canonical   string
	Robots      string
	Image       string
	Lang        string
	Published   string // article:published_time, posts only
	OG          OpenGraph
	Twitter     Twitter
	// JSONLD holds structured-data documents, either map[string]any values
	// from the builders or json.RawMessage from an explicit schema row.
	JSONLD []any
}

// OpenGraph holds the og:* properties.
type OpenGraph struct {
	Type        string
	Title       string
	Description string
	Image       string
	URL         string
	SiteName    string
	Locale      string
}

// Twitter holds the twitter:* card properties.
type Twitter struct {
	Card        string
	Site        string
	Title       string
	Description string
	Image       string
}

// Defaults returns the site-level metadata used when a route has nothing more specific.
func Defaults(site Site, route string) Meta {
	route = content.NormalizeRoute(route)
	m := Meta{
		Title:       site.Name,
		Description: Truncate(site.Description, MaxDescription),
		Canonical:   site.CanonicalURL(route),
		Image:       site.AbsoluteURL(site.DefaultImage),
		OG:          OpenGraph{Type: "website"},
	}
	if route == "/" {
		m.JSONLD = []any{WebSiteLD(site)}
	}
	return m.finish(site)
}

// NotFound returns the metadata of the not-found page. It is never indexed
// and has no canonical URL.
func NotFound(site Site) Meta {
	m := Defaults(site, "/404")
	m.Title = site.FormatTitle("Page Not Found")
	m.Canonical = ""
	m.Robots = RobotsNoIndex
	m.JSONLD = nil
	return m.finish(site)
}

// FromEntry returns the metadata for an explicit seo_metadata row on top of
// the site defaults.
func FromEntry(site Site, route string, e content.SEOEntry) Meta {
	return ApplyEntry(site, Defaults(site, route), e)
}

// ApplyEntry overlays the non-empty fields of an explicit row onto m.
func ApplyEntry(site Site, m Meta, e content.SEOEntry) Meta {
	override := Meta{
		Title:       strings.TrimSpace(e.Title),
		Description: Truncate(strings.TrimSpace(e.Description), MaxDescription),
		Keywords:    strings.TrimSpace(e.Keywords),
		Image:       site.AbsoluteURL(strings.TrimSpace(e.OGImage)),
		OG:          OpenGraph{Type: strings.TrimSpace(e.OGType)},
	}
	if c := strings.TrimSpace(e.Canonical); c != "" {
		if strings.HasPrefix(c, "http://") || strings.HasPrefix(c, "https://") {
			override.Canonical = c
		} else {
			override.Canonical = site.CanonicalURL(c)
		}
	}
	if e.NoIndex {
		override.Robots = RobotsNoIndex
	}
	if raw := strings.TrimSpace(e.Schema); raw != "" && json.Valid([]byte(raw)) {
		override.JSONLD = []any{json.RawMessage(raw)}
	}
	return Merge(m, override).finish(site)
}

// ForListing computes the metadata of a listing detail page.
func ForListing(site Site, l content.Listing) Meta {
	desc := strings.TrimSpace(l.Summary)
	if desc == "" {
		desc = markdown.Plain(l.Description)
	}
	if desc == "" {
		desc = site.Description
	}
	img := l.ImageURL
	if img == "" {
		img = site.DefaultImage
	}
	keywords := append([]string{}, l.Tags...)
	keywords = append(keywords, string(l.Kind))
	if l.City != "" {
		keywords = append(keywords, l.City)
	}
	m := Meta{
		Title:       site.FormatTitle(l.Name),
		Description: Truncate(desc, MaxDescription),
		Keywords:    joinKeywords(keywords),
		Canonical:   site.CanonicalURL(l.Path()),
		Image:       site.AbsoluteURL(img),
		OG:          OpenGraph{Type: "website"},
		JSONLD: []any{
			ListingLD(site, l),
			BreadcrumbLD(site, []Crumb{
				{Name: "Home", Path: "/"},
				{Name: l.Kind.Label(), Path: l.Kind.Prefix()},
				{Name: l.Name, Path: l.Path()},
			}),
		},
	}
	return m.finish(site)
}

// ForPost computes the metadata of a blog post page.
func ForPost(site Site, p content.BlogPost) Meta {
	desc := strings.TrimSpace(p.Summary)
	if desc == "" {
		desc = markdown.Plain(p.Content)
	}
	if desc == "" {
		desc = site.Description
	}
	img := p.ImageURL
	if img == "" {
		img = site.DefaultImage
	}
	m := Meta{
		Title:       site.FormatTitle(p.Title),
		Description: Truncate(desc, MaxDescription),
		Keywords:    joinKeywords(p.Tags),
		Canonical:   site.CanonicalURL(p.Path()),
		Image:       site.AbsoluteURL(img),
		Published:   p.Date,
		OG:          OpenGraph{Type: "article"},
		JSONLD: []any{
			BlogPostingLD(site, p),
			BreadcrumbLD(site, []Crumb{
				{Name: "Home", Path: "/"},
				{Name: content.KindBlog.Label(), Path: content.KindBlog.Prefix()},
				{Name: p.Title, Path: p.Path()},
			}),
		},
	}
	return m.finish(site)
}

// ForPage computes the metadata of a static or index page from its title and
// visible content blocks. The first visible block with text supplies the description.
func ForPage(site Site, route, title string, blocks []content.ContentBlock) Meta {
	route = content.NormalizeRoute(route)
	m := Defaults(site, route)
	if route != "/" {
		m.Title = site.FormatTitle(title)
		m.JSONLD = []any{BreadcrumbLD(site, []Crumb{
			{Name: "Home", Path: "/"},
			{Name: title, Path: route},
		})}
	}
	for _, b := range blocks {
		if !b.Visible {
			continue
		}
		if text := markdown.Plain(b.Body); text != "" {
			m.Description = Truncate(text, MaxDescription)
			break
		}
	}
	return m.finish(site)
}

// Merge returns base with every non-empty field of override applied.
// A non-empty override JSONLD replaces the base documents.
func Merge(base, override Meta) Meta {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	out := base
	str(&out.Title, override.Title)
	str(&out.Description, override.Description)
	str(&out.Keywords, override.Keywords)
	str(&out.Canonical, override.Canonical)
	str(&out.Robots, override.Robots)
	str(&out.Image, override.Image)
	str(&out.Lang, override.Lang)
	str(&out.Published, override.Published)

	str(&out.OG.Type, override.OG.Type)
	str(&out.OG.Title, override.OG.Title)
	str(&out.OG.Description, override.OG.Description)
	str(&out.OG.Image, override.OG.Image)
	str(&out.OG.URL, override.OG.URL)
	str(&out.OG.SiteName, override.OG.SiteName)
	str(&out.OG.Locale, override.OG.Locale)

	str(&out.Twitter.Card, override.Twitter.Card)
	str(&out.Twitter.Site, override.Twitter.Site)
	str(&out.Twitter.Title, override.Twitter.Title)
	str(&out.Twitter.Description, override.Twitter.Description)
	str(&out.Twitter.Image, override.Twitter.Image)

	if len(override.JSONLD) > 0 {
		out.JSONLD = append([]any(nil), override.JSONLD...)
	}
	return out
}

// finish derives the Open Graph and Twitter properties from the top-level
// fields so an override of the title or image carries through to the cards.
func (m Meta) finish(site Site) Meta {
	if m.OG.Type == "" {
		m.OG.Type = "website"
	}
	m.OG.Title = m.Title
	m.OG.Description = m.Description
	m.OG.Image = m.Image
	m.OG.URL = m.Canonical
	m.OG.SiteName = site.Name
	m.OG.Locale = site.Locale
	m.Lang = site.Language

	m.Twitter.Card = "summary"
	if m.Image != "" {
		m.Twitter.Card = "summary_large_image"
	}
	m.Twitter.Site = site.Twitter
	m.Twitter.Title = m.Title
	m.Twitter.Description = m.Description
	m.Twitter.Image = m.Image
	return m
}

// Truncate collapses whitespace in s and shortens it to at most max runes,
// cutting at a word boundary and appending "..." when anything was removed.
func Truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	const ellipsis = "..."
	if max <= len(ellipsis) {
		return string([]rune(s)[:max])
	}
	cut := string([]rune(s)[:max-len(ellipsis)])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-") + ellipsis
}

func joinKeywords(words []string) string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		key := strings.ToLower(w)
		if w == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	return strings.Join(out, ", ")
}
