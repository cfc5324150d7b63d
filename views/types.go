package views

import (
	"github.com/eringen/destino/content"
	"github.com/eringen/destino/seo"
)

// NavItem is one link of the site header.
type NavItem struct {
	Label  string
	Path   string // without trailing slash
	Active bool
}

// Layout carries the page-wide values every public and admin page is
// wrapped in. Meta becomes the <head> through seo.RenderHead.
type Layout struct {
	Meta     seo.Meta
	SiteName string
	Nav      []NavItem
}

// Section is one kind's block on the home page.
type Section struct {
	Kind     content.Kind
	Label    string
	Prefix   string
	Listings []content.Listing
}

// HomeData feeds the home page.
type HomeData struct {
	SiteName    string
	Description string
	Sections    []Section
	Posts       []content.BlogPost
}

// BlogData feeds the blog index.
type BlogData struct {
	Posts     []content.BlogPost
	Tags      []string
	ActiveTag string
}

// SubmitData feeds the public submission form.
type SubmitData struct {
	Kind   content.Kind
	Label  string
	Values map[string]string
	Error  string
	Done   bool
	CSRF   string
}

// DashboardData feeds the admin dashboard.
type DashboardData struct {
	PendingListings []content.Listing
	PendingPosts    []content.BlogPost
	Listings        []content.Listing
	Posts           []content.BlogPost
	Message         string
	CSRF            string
}

// ListingForm feeds the admin listing editor.
type ListingForm struct {
	Listing content.Listing
	Kinds   []content.Kind
	CSRF    string
}

// PostForm feeds the admin post editor.
type PostForm struct {
	Post content.BlogPost
	CSRF string
}

// SEOData feeds the admin SEO editor.
type SEOData struct {
	Entries []content.SEOEntry
	Edit    content.SEOEntry
	Message string
	CSRF    string
}

// BlocksData feeds the admin content block editor.
type BlocksData struct {
	Route   string
	Routes  []string
	Blocks  []content.ContentBlock
	Message string
	CSRF    string
}

type errorData struct {
	Code    int
	Title   string
	Message string
}
