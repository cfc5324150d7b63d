package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/seo"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func assertContains(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

var hotel = content.Listing{
	ID:          "h1",
	Kind:        content.KindHotel,
	Slug:        "sea-view",
	Name:        "Sea View",
	Summary:     "Rooms by the water",
	Description: "**Breakfast** included.",
	City:        "Split",
	Address:     "Riva 1",
	Rating:      4.4,
	Tags:        []string{"beach", "family"},
	Status:      content.StatusApproved,
}

func TestPageWrapsBodyInRoot(t *testing.T) {
	meta := seo.Meta{Title: "Hotels | Destino", Description: "Where to stay", Lang: "hr"}
	out := render(t, Page(Layout{
		Meta:     meta,
		SiteName: "Destino",
		Nav:      Nav([]content.Kind{content.KindHotel, content.KindBlog}, "/hotels/sea-view"),
	}, Index(content.KindHotel, []content.Listing{hotel})))

	assertContains(t, out,
		`<html lang="hr">`,
		`<title>Hotels | Destino</title>`,
		`<meta name="description" content="Where to stay">`,
		`<div id="root">`,
		`<a href="/hotels/" aria-current="page">Hotels</a>`,
		`<a href="/blog/">Blog</a>`,
		`<a href="/hotels/sea-view/">Sea View</a>`,
		`<a href="/submit/hotel/">`,
	)
}

func TestListing(t *testing.T) {
	out := render(t, Listing(hotel))
	assertContains(t, out,
		"<h1>Sea View</h1>",
		"Riva 1, Split",
		"★★★★☆",
		"<strong>Breakfast</strong>",
		"beach, family",
	)
}

func TestListingEscapesText(t *testing.T) {
	l := hotel
	l.Name = `<script>alert(1)</script>`
	l.Description = `<script>alert(2)</script>ok`
	out := render(t, Listing(l))
	if strings.Contains(out, "<script>") {
		t.Fatalf("unescaped script in output:\n%s", out)
	}
}

func TestHome(t *testing.T) {
	out := render(t, Home(HomeData{
		SiteName: "Destino",
		Sections: []Section{
			{Kind: content.KindHotel, Label: "Hotels", Prefix: "/hotels", Listings: []content.Listing{hotel}},
			{Kind: content.KindEvent, Label: "Events", Prefix: "/events"},
		},
		Posts: []content.BlogPost{{Slug: "first", Title: "First", Date: "2024-05-01"}},
	}))
	assertContains(t, out,
		`<h2><a href="/hotels/">Hotels</a></h2>`,
		`Nothing listed yet.`,
		`<a href="/blog/first/">First</a>`,
	)
}

func TestBlogMarksActiveTag(t *testing.T) {
	out := render(t, Blog(BlogData{Tags: []string{"food", "news"}, ActiveTag: "food"}))
	assertContains(t, out,
		`<a class="tag tag-active" href="/blog/?tag=food">food</a>`,
		`<a class="tag" href="/blog/?tag=news">news</a>`,
		`No posts yet.`,
	)
}

func TestPostShowsRelated(t *testing.T) {
	post := content.BlogPost{Slug: "a", Title: "A", Tags: []string{"food"}, Content: "# Hello"}
	others := []content.BlogPost{
		post,
		{Slug: "b", Title: "B", Tags: []string{"Food"}},
		{Slug: "c", Title: "C", Tags: []string{"news"}},
	}
	out := render(t, Post(post, others))
	assertContains(t, out, "Related posts", `<a href="/blog/b/">B</a>`)
	if strings.Contains(out, `/blog/c/`) {
		t.Errorf("unrelated post listed:\n%s", out)
	}
}

func TestStaticPage(t *testing.T) {
	out := render(t, StaticPage("About", []content.ContentBlock{
		{Key: "intro", Title: "Who we are", Body: "A small team.", Visible: true},
	}))
	assertContains(t, out, "<h1>About</h1>", `id="intro"`, "<h2>Who we are</h2>", "A small team.")
}

func TestSubmitForm(t *testing.T) {
	out := render(t, Submit(SubmitData{
		Kind:   content.KindRestaurant,
		Label:  "a restaurant",
		Values: map[string]string{"name": "Konoba"},
		Error:  "Name is required.",
		CSRF:   "tok",
	}))
	assertContains(t, out,
		`action="/submit/restaurant/"`,
		`name="_csrf" value="tok"`,
		`value="Konoba"`,
		`name="cuisine"`,
		"Name is required.",
	)
	if strings.Contains(out, `name="starts_at"`) {
		t.Error("restaurant form should not ask for event dates")
	}

	done := render(t, Submit(SubmitData{Kind: content.KindEvent, Label: "an event", Done: true}))
	assertContains(t, done, "Thank you.")
}

func TestErrorPages(t *testing.T) {
	assertContains(t, render(t, NotFound()), "404", "Page not found")
	assertContains(t, render(t, ServerError()), "500")
}

func TestAdminDashboard(t *testing.T) {
	pending := hotel
	pending.Status = content.StatusPending
	pending.SubmittedBy = "owner@example.com"
	out := render(t, AdminDashboard(DashboardData{
		PendingListings: []content.Listing{pending},
		PendingPosts:    []content.BlogPost{{Slug: "draft", Title: "Draft", Status: content.StatusPending}},
		CSRF:            "tok",
		Message:         "saved",
	}))
	assertContains(t, out,
		"Pending (1 listings, 1 posts)",
		`action="/admin/listings/h1/approve/"`,
		`action="/admin/posts/draft/reject/"`,
		"owner@example.com",
		"saved",
	)
}

func TestAdminForms(t *testing.T) {
	out := render(t, AdminListing(ListingForm{Listing: hotel, Kinds: content.ListingKinds, CSRF: "tok"}))
	assertContains(t, out, `<option value="hotel" selected>Hotels</option>`, `value="beach, family"`, `/admin/listings/h1/delete/`)

	out = render(t, AdminPost(PostForm{CSRF: "tok"}))
	assertContains(t, out, "New post")

	out = render(t, AdminSEO(SEOData{Entries: []content.SEOEntry{{Route: "/about", NoIndex: true}}, Edit: content.SEOEntry{Route: "/about"}}))
	assertContains(t, out, "Edit /about", "noindex")

	out = render(t, AdminBlocks(BlocksData{Route: "/about", Routes: []string{"/about", "/terms"}, Blocks: []content.ContentBlock{{ID: "b1", Key: "intro", Visible: true}}}))
	assertContains(t, out, `/admin/blocks/b1/toggle/`, ">Hide<")
}

func TestStars(t *testing.T) {
	tests := map[float64]string{0: "☆☆☆☆☆", 2.5: "★★★☆☆", 7: "★★★★★", -1: "☆☆☆☆☆"}
	for in, want := range tests {
		if got := Stars(in); got != want {
			t.Errorf("Stars(%v) = %q, want %q", in, got, want)
		}
	}
}
