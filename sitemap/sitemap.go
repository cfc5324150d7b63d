// Package sitemap writes sitemaps.org XML sitemaps and robots.txt files.
package sitemap

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// Namespace is the sitemaps.org 0.9 schema namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// URL is one <url> entry.
type URL struct {
	Loc        string
	LastMod    string
	ChangeFreq string
	Priority   float64
}

// Route is a site path as the sitemap sees it.
type Route struct {
	Path       string
	LastMod    string
	ChangeFreq string
	Priority   float64
	NoIndex    bool
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []urlXML `xml:"url"`
}

type urlXML struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// Write encodes urls as a sitemap document, XML header included.
func Write(w io.Writer, urls []URL) error {
	set := urlSet{XMLNS: Namespace, URLs: make([]urlXML, 0, len(urls))}
	for _, u := range urls {
		x := urlXML{
			Loc:        u.Loc,
			LastMod:    lastMod(u.LastMod),
			ChangeFreq: u.ChangeFreq,
		}
		if u.Priority > 0 {
			x.Priority = fmt.Sprintf("%.1f", u.Priority)
		}
		set.URLs = append(set.URLs, x)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// lastMod reduces full timestamps to their date.
func lastMod(v string) string {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	return v
}

// FromRoutes builds absolute sitemap URLs for routes, skipping noindex routes.
func FromRoutes(base string, routes []Route) []URL {
	base = strings.TrimRight(base, "/")
	urls := make([]URL, 0, len(routes))
	for _, r := range routes {
		if r.NoIndex {
			continue
		}
		urls = append(urls, URL{
			Loc:        buildLoc(base, r.Path),
			LastMod:    r.LastMod,
			ChangeFreq: r.ChangeFreq,
			Priority:   r.Priority,
		})
	}
	return urls
}

func buildLoc(base, path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return base + "/"
	}
	return base + "/" + path + "/"
}

// DefaultDisallow lists the paths robots are kept out of when none are configured.
var DefaultDisallow = []string{"/admin/"}

// Robots returns a robots.txt body allowing everything except disallow and
// pointing at the sitemap under base.
func Robots(base string, disallow []string) string {
	if disallow == nil {
		disallow = DefaultDisallow
	}
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	for _, d := range disallow {
		fmt.Fprintf(&b, "Disallow: %s\n", d)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Sitemap: %s/sitemap.xml\n", strings.TrimRight(base, "/"))
	return b.String()
}
