// Package content defines the directory's content types: listings (hotels,
// restaurants, events, activities, businesses), blog posts, per-route SEO rows
// and page content blocks. The types mirror the remote tables one to one.
package content

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a requested record does not exist or is not public.
	ErrNotFound = errors.New("not found")
	// ErrInvalidKind is returned for a kind string that names no content kind.
	ErrInvalidKind = errors.New("invalid content kind")
	// ErrInvalidStatus is returned for an unknown moderation status.
	ErrInvalidStatus = errors.New("invalid status")
)

// Kind identifies a listing type. Each kind is served under its own path prefix.
type Kind string

const (
	KindHotel      Kind = "hotel"
	KindRestaurant Kind = "restaurant"
	KindEvent      Kind = "event"
	KindActivity   Kind = "activity"
	KindBusiness   Kind = "business"
	KindBlog       Kind = "blog"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindHotel, KindRestaurant, KindEvent, KindActivity, KindBusiness, KindBlog}

// ListingKinds are the kinds stored in the listings table.
var ListingKinds = []Kind{KindHotel, KindRestaurant, KindEvent, KindActivity, KindBusiness}

var kindPrefixes = map[Kind]string{
	KindHotel:      "/hotels",
	KindRestaurant: "/restaurants",
	KindEvent:      "/events",
	KindActivity:   "/activities",
	KindBusiness:   "/businesses",
	KindBlog:       "/blog",
}

var kindLabels = map[Kind]string{
	KindHotel:      "Hotels",
	KindRestaurant: "Restaurants",
	KindEvent:      "Events",
	KindActivity:   "Activities",
	KindBusiness:   "Businesses",
	KindBlog:       "Blog",
}

// ParseKind accepts the singular or plural name of a kind, case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.Trim(strings.TrimSpace(s), "/"))
	for k, prefix := range kindPrefixes {
		if s == string(k) || s == strings.TrimPrefix(prefix, "/") {
			return k, nil
		}
	}
	return "", ErrInvalidKind
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindPrefixes[k]
	return ok
}

// IsListing reports whether k is stored in the listings table.
func (k Kind) IsListing() bool {
	return k.Valid() && k != KindBlog
}

// Prefix returns the public path prefix, e.g. "/hotels".
func (k Kind) Prefix() string {
	return kindPrefixes[k]
}

// Label returns the plural display name.
func (k Kind) Label() string {
	return kindLabels[k]
}

// Status is the moderation state of a record. Only approved records are public.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates s as a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Listing is a directory entry of any non-blog kind.
type Listing struct {
	ID          string   `db:"id"`
	Kind        Kind     `db:"kind"`
	Slug        string   `db:"slug"`
	Name        string   `db:"name"`
	Summary     string   `db:"summary"`
	Description string   `db:"description"`
	Address     string   `db:"address"`
	City        string   `db:"city"`
	Phone       string   `db:"phone"`
	Website     string   `db:"website"`
	PriceRange  string   `db:"price_range"`
	Rating      float64  `db:"rating"`
	Cuisine     string   `db:"cuisine"`
	ImageURL    string   `db:"image_url"`
	StartsAt    string   `db:"starts_at"`
	EndsAt      string   `db:"ends_at"`
	Tags        []string `db:"-"`
	Status      Status   `db:"status"`
	SubmittedBy string   `db:"submitted_by"`
	CreatedAt   string   `db:"created_at"`
	UpdatedAt   string   `db:"updated_at"`
}

// Path returns the public path of the listing, e.g. "/hotels/sea-view".
func (l Listing) Path() string {
	return l.Kind.Prefix() + "/" + l.Slug
}

// Approved reports whether the listing is publicly visible.
func (l Listing) Approved() bool {
	return l.Status == StatusApproved
}

// BlogPost is a blog article. Posts go through the same moderation states as listings.
type BlogPost struct {
	Slug     string
	Title    string
	Date     string
	Tags     []string
	Summary  string
	Content  string
	ImageURL string
	Author   string
	Status   Status
	Link     string
}

// Published reports whether the post is publicly visible.
func (p BlogPost) Published() bool {
	return p.Status == StatusApproved
}

// Path returns the public path of the post.
func (p BlogPost) Path() string {
	return KindBlog.Prefix() + "/" + p.Slug
}

// SEOEntry is an explicit metadata override for one route.
type SEOEntry struct {
	Route       string `db:"route"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Keywords    string `db:"keywords"`
	OGImage     string `db:"og_image"`
	OGType      string `db:"og_type"`
	Canonical   string `db:"canonical"`
	Schema      string `db:"schema_ld"`
	NoIndex     bool   `db:"noindex"`
	UpdatedAt   string `db:"updated_at"`
}

// ContentBlock is a named, ordered, visibility-flagged section of a page.
type ContentBlock struct {
	ID       string `db:"id"`
	Route    string `db:"route"`
	Key      string `db:"block_key"`
	Title    string `db:"title"`
	Body     string `db:"body"`
	Position int    `db:"sort_order"`
	Visible  bool   `db:"visible"`
}

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// NormalizeRoute gives a route a leading slash and strips any trailing slash
// except on the root route.
func NormalizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if route != "/" {
		route = strings.TrimRight(route, "/")
		if route == "" {
			route = "/"
		}
	}
	return route
}

// ParseTags splits a comma-delimited tag string (e.g. ",beach,family,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// JoinTags normalizes tags to lowercase and encodes them in the ",a,b," form
// used by the tags columns.
func JoinTags(tags []string) string {
	normalized := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			normalized = append(normalized, t)
		}
	}
	if len(normalized) == 0 {
		return ""
	}
	return "," + strings.Join(normalized, ",") + ","
}
