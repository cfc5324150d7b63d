package seo

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eringen/destino/content"
)

const schemaContext = "https://schema.org"

var listingTypes = map[content.Kind]string{
	content.KindHotel:      "Hotel",
	content.KindRestaurant: "Restaurant",
	content.KindEvent:      "Event",
	content.KindActivity:   "TouristAttraction",
	content.KindBusiness:   "LocalBusiness",
}

// Crumb is one step of a breadcrumb trail.
type Crumb struct {
	Name string
	Path string
}

// WebSiteLD returns a Schema.org WebSite document for the site.
func WebSiteLD(site Site) map[string]any {
	data := map[string]any{
		"@context": schemaContext,
		"@type":    "WebSite",
		"name":     site.Name,
		"url":      site.CanonicalURL("/"),
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	if site.Language != "" {
		data["inLanguage"] = site.Language
	}
	return data
}

// ListingLD returns the Schema.org document for a listing, typed by its kind.
func ListingLD(site Site, l content.Listing) map[string]any {
	typ, ok := listingTypes[l.Kind]
	if !ok {
		typ = "Place"
	}
	data := map[string]any{
		"@context": schemaContext,
		"@type":    typ,
		"name":     l.Name,
		"url":      site.CanonicalURL(l.Path()),
	}
	if desc := strings.TrimSpace(l.Summary); desc != "" {
		data["description"] = desc
	}
	if l.ImageURL != "" {
		data["image"] = site.AbsoluteURL(l.ImageURL)
	}
	address := postalAddress(l)

	if l.Kind == content.KindEvent {
		if l.StartsAt != "" {
			data["startDate"] = l.StartsAt
		}
		if l.EndsAt != "" {
			data["endDate"] = l.EndsAt
		}
		if address != nil || l.City != "" {
			place := map[string]any{"@type": "Place", "name": placeName(l)}
			if address != nil {
				place["address"] = address
			}
			data["location"] = place
		}
		return data
	}

	if address != nil {
		data["address"] = address
	}
	if l.Phone != "" {
		data["telephone"] = l.Phone
	}
	if l.PriceRange != "" {
		data["priceRange"] = l.PriceRange
	}
	if l.Website != "" {
		data["sameAs"] = l.Website
	}
	if l.Kind == content.KindRestaurant && l.Cuisine != "" {
		data["servesCuisine"] = l.Cuisine
	}
	if l.Rating > 0 {
		if l.Kind == content.KindHotel {
			data["starRating"] = map[string]any{
				"@type":       "Rating",
				"ratingValue": formatRating(l.Rating),
			}
		} else {
			data["aggregateRating"] = map[string]any{
				"@type":       "AggregateRating",
				"ratingValue": formatRating(l.Rating),
				"bestRating":  "5",
				"ratingCount": 1,
			}
		}
	}
	return data
}

func postalAddress(l content.Listing) map[string]any {
	if l.Address == "" && l.City == "" {
		return nil
	}
	addr := map[string]any{"@type": "PostalAddress"}
	if l.Address != "" {
		addr["streetAddress"] = l.Address
	}
	if l.City != "" {
		addr["addressLocality"] = l.City
	}
	return addr
}

func placeName(l content.Listing) string {
	if l.Address != "" {
		return l.Address
	}
	return l.City
}

func formatRating(r float64) string {
	if r > 5 {
		r = 5
	}
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", r), "0"), ".")
}

// BlogPostingLD returns a Schema.org BlogPosting document for a post.
func BlogPostingLD(site Site, p content.BlogPost) map[string]any {
	postURL := site.CanonicalURL(p.Path())
	data := map[string]any{
		"@context":      schemaContext,
		"@type":         "BlogPosting",
		"headline":      p.Title,
		"datePublished": p.Date,
		"url":           postURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if p.Summary != "" {
		data["description"] = p.Summary
	}
	author := p.Author
	if author == "" {
		author = site.Author
	}
	if author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  author,
		}
	}
	if site.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  site.Name,
		}
	}
	if p.ImageURL != "" {
		data["image"] = site.AbsoluteURL(p.ImageURL)
	}
	if len(p.Tags) > 0 {
		data["keywords"] = strings.Join(p.Tags, ", ")
	}
	return data
}

// BreadcrumbLD returns a Schema.org BreadcrumbList for crumbs, positions starting at 1.
func BreadcrumbLD(site Site, crumbs []Crumb) map[string]any {
	items := make([]map[string]any, 0, len(crumbs))
	for i, c := range crumbs {
		items = append(items, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     c.Name,
			"item":     site.CanonicalURL(c.Path),
		})
	}
	return map[string]any{
		"@context":        schemaContext,
		"@type":           "BreadcrumbList",
		"itemListElement": items,
	}
}

// EncodeLD marshals a JSON-LD document for embedding in a script element.
// <, > and & are written as \u003c, \u003e and \u0026, so neither a closing
// tag nor a comment opener can appear inside the element.
func EncodeLD(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json-ld: %w", err)
	}
	return string(b), nil
}
