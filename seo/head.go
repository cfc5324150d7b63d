package seo

import (
	"fmt"
	"html"
	"strings"
)

// RenderHead returns the <head> fragment for m. JSON-LD documents that fail
// to encode are left out; Template.Execute reports them instead.
func RenderHead(m Meta) string {
	out, _ := renderHead(m)
	return out
}

func renderHead(m Meta) (string, error) {
	var b strings.Builder
	tag := func(format string, args ...string) {
		escaped := make([]any, len(args))
		for i, a := range args {
			escaped[i] = html.EscapeString(a)
		}
		b.WriteString("    ")
		b.WriteString(fmt.Sprintf(format, escaped...))
		b.WriteByte('\n')
	}
	meta := func(attr, key, value string) {
		if value == "" {
			return
		}
		tag(`<meta `+attr+`="%s" content="%s">`, key, value)
	}

	tag(`<title>%s</title>`, m.Title)
	meta("name", "description", m.Description)
	meta("name", "keywords", m.Keywords)
	meta("name", "robots", m.Robots)
	if m.Canonical != "" {
		tag(`<link rel="canonical" href="%s">`, m.Canonical)
	}

	meta("property", "og:type", m.OG.Type)
	meta("property", "og:title", m.OG.Title)
	meta("property", "og:description", m.OG.Description)
	meta("property", "og:url", m.OG.URL)
	meta("property", "og:image", m.OG.Image)
	meta("property", "og:site_name", m.OG.SiteName)
	meta("property", "og:locale", m.OG.Locale)
	if m.OG.Type == "article" {
		meta("property", "article:published_time", m.Published)
	}

	meta("name", "twitter:card", m.Twitter.Card)
	meta("name", "twitter:site", m.Twitter.Site)
	meta("name", "twitter:title", m.Twitter.Title)
	meta("name", "twitter:description", m.Twitter.Description)
	meta("name", "twitter:image", m.Twitter.Image)

	var firstErr error
	for _, doc := range m.JSONLD {
		ld, err := EncodeLD(doc)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		b.WriteString(`    <script type="application/ld+json">`)
		b.WriteString(ld)
		b.WriteString("</script>\n")
	}
	return b.String(), firstErr
}
