package destino

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/seo"
	"github.com/eringen/destino/views"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// meta resolves the head metadata of route. Lookup failures are logged; the
// resolver still returns usable metadata.
func (a *App) meta(c echo.Context, route string) seo.Meta {
	m, err := a.Resolver.Resolve(c.Request().Context(), route)
	if err != nil {
		a.logger.Warn("seo metadata fell back", zap.String("route", route), zap.Error(err))
	}
	return m
}

func (a *App) layout(route string, m seo.Meta) views.Layout {
	return views.Layout{
		Meta:     m,
		SiteName: a.Config.Name,
		Nav:      views.Nav(content.Kinds, route),
	}
}

// renderRoute wraps body in the site layout with the resolved metadata of route.
func (a *App) renderRoute(c echo.Context, route string, body templ.Component) error {
	return Render(c, views.Page(a.layout(route, a.meta(c, route)), body))
}

// renderNotFound writes the 404 page. It is never indexed.
func (a *App) renderNotFound(c echo.Context) error {
	m := seo.NotFound(a.Config.Site())
	return RenderStatus(c, http.StatusNotFound, views.Page(a.layout("/404", m), views.NotFound()))
}

func (a *App) noIndexMeta(title string) seo.Meta {
	site := a.Config.Site()
	return seo.Meta{
		Title:  site.FormatTitle(title),
		Robots: seo.RobotsNoIndex,
		Lang:   site.Language,
	}
}

// renderAdmin wraps an admin view in the layout with noindex metadata.
func (a *App) renderAdmin(c echo.Context, title string, body templ.Component) error {
	return a.renderAdminStatus(c, http.StatusOK, title, body)
}

func (a *App) renderAdminStatus(c echo.Context, code int, title string, body templ.Component) error {
	return RenderStatus(c, code, views.Page(a.layout("/admin", a.noIndexMeta(title)), body))
}
