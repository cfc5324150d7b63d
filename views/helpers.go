package views

import (
	"html/template"
	"net/url"
	"strings"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/markdown"
)

var funcs = template.FuncMap{
	"markdown":   renderMarkdown,
	"joinTags":   JoinTags,
	"pathEscape": PathEscape,
	"tagClass":   TagClass,
	"stars":      Stars,
	"moderation": moderationForm,
}

type moderationData struct {
	Base string
	CSRF string
}

func moderationForm(base, csrf string) moderationData {
	return moderationData{Base: base, CSRF: csrf}
}

func renderMarkdown(md string) template.HTML {
	// markdown.HTML sanitizes its output.
	return template.HTML(markdown.HTML(md))
}

// Nav returns the header links for kinds, marking the one whose prefix
// matches the current route.
func Nav(kinds []content.Kind, route string) []NavItem {
	route = content.NormalizeRoute(route)
	items := make([]NavItem, 0, len(kinds))
	for _, k := range kinds {
		p := k.Prefix()
		items = append(items, NavItem{
			Label:  k.Label(),
			Path:   p,
			Active: route == p || strings.HasPrefix(route, p+"/"),
		})
	}
	return items
}

// FilterRelatedPosts returns posts that share at least one tag with the current post.
func FilterRelatedPosts(current content.BlogPost, posts []content.BlogPost) []content.BlogPost {
	tagSet := make(map[string]struct{})
	for _, t := range current.Tags {
		tag := strings.ToLower(strings.TrimSpace(t))
		if tag != "" {
			tagSet[tag] = struct{}{}
		}
	}
	var related []content.BlogPost
	for _, p := range posts {
		if p.Slug == current.Slug {
			continue
		}
		for _, t := range p.Tags {
			tag := strings.ToLower(strings.TrimSpace(t))
			if _, ok := tagSet[tag]; ok {
				related = append(related, p)
				break
			}
		}
	}
	return related
}

// PathEscape wraps url.PathEscape for use in templates.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// TagClass returns CSS classes for a tag pill, with active variant.
func TagClass(active bool) string {
	if active {
		return "tag tag-active"
	}
	return "tag"
}

// JoinTags formats a tag slice as a comma-separated string for form fields.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// Stars renders a 0-5 rating as filled and empty stars.
func Stars(rating float64) string {
	n := int(rating + 0.5)
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}
