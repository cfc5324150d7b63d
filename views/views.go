// Package views renders the site's pages. Each page is a templ.Component
// backed by an embedded html/template file, so handlers and the prerender
// origin render through the same component interface.
package views

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/seo"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("views").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

func component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, name, data)
	})
}

type layoutData struct {
	Layout
	Head template.HTML
	Body template.HTML
}

// Page wraps body in the site layout. The body is rendered inside the
// #root element that the prerender pipeline extracts.
func Page(l Layout, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := body.Render(ctx, &buf); err != nil {
			return err
		}
		return pages.ExecuteTemplate(w, "layout.html", layoutData{
			Layout: l,
			// RenderHead escapes every value it writes.
			Head: template.HTML(seo.RenderHead(l.Meta)),
			Body: template.HTML(buf.String()),
		})
	})
}

func Home(d HomeData) templ.Component {
	return component("home.html", d)
}

// Index lists the approved listings of one kind.
func Index(kind content.Kind, listings []content.Listing) templ.Component {
	return component("index.html", Section{
		Kind:     kind,
		Label:    kind.Label(),
		Prefix:   kind.Prefix(),
		Listings: listings,
	})
}

func Listing(l content.Listing) templ.Component {
	return component("listing.html", l)
}

func Blog(d BlogData) templ.Component {
	return component("blog.html", d)
}

func Post(p content.BlogPost, posts []content.BlogPost) templ.Component {
	return component("post.html", struct {
		Post    content.BlogPost
		Related []content.BlogPost
	}{p, FilterRelatedPosts(p, posts)})
}

// StaticPage renders a CMS page from its visible blocks.
func StaticPage(title string, blocks []content.ContentBlock) templ.Component {
	return component("page.html", struct {
		Title  string
		Blocks []content.ContentBlock
	}{title, blocks})
}

func Submit(d SubmitData) templ.Component {
	return component("submit.html", d)
}

func NotFound() templ.Component {
	return component("error.html", errorData{
		Code:    http.StatusNotFound,
		Title:   "Page not found",
		Message: "The page you are looking for does not exist or is no longer listed.",
	})
}

func ServerError() templ.Component {
	return component("error.html", errorData{
		Code:    http.StatusInternalServerError,
		Title:   "Something went wrong",
		Message: "Please try again in a moment.",
	})
}

func AdminLogin(showError bool, csrfToken string) templ.Component {
	return component("admin_login.html", struct {
		ShowError bool
		CSRF      string
	}{showError, csrfToken})
}

func AdminDashboard(d DashboardData) templ.Component {
	return component("admin.html", d)
}

func AdminListing(f ListingForm) templ.Component {
	return component("admin_listing.html", f)
}

func AdminPost(f PostForm) templ.Component {
	return component("admin_post.html", f)
}

func AdminSEO(d SEOData) templ.Component {
	return component("admin_seo.html", d)
}

func AdminBlocks(d BlocksData) templ.Component {
	return component("admin_blocks.html", d)
}
