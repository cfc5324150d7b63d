package destino

import "github.com/eringen/destino/content"

// The content types live in package content so the seo and prerender
// packages can use them without importing the server. They are aliased
// here for callers of the root package.
type (
	Kind         = content.Kind
	Status       = content.Status
	Listing      = content.Listing
	BlogPost     = content.BlogPost
	SEOEntry     = content.SEOEntry
	ContentBlock = content.ContentBlock
)

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	return content.Slugify(s)
}

// ParseTags splits a comma-delimited tag string (e.g. ",beach,family,") into a slice.
func ParseTags(s string) []string {
	return content.ParseTags(s)
}
