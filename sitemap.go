package destino

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/destino/prerender"
	"github.com/eringen/destino/sitemap"
)

// routes enumerates the same route set the prerender pipeline builds.
func (a *App) routes(c echo.Context) ([]prerender.Route, error) {
	static := a.Config.Build.Routes
	if len(static) == 0 {
		static = prerender.DefaultStaticRoutes
	}
	kinds, err := a.Config.Build.ParseKinds()
	if err != nil {
		return nil, err
	}
	if kinds == nil {
		kinds = prerender.DefaultKinds
	}
	return prerender.Enumerate(c.Request().Context(), a.Source(), static, kinds)
}

func (a *App) handleSitemap(c echo.Context) error {
	routes, err := a.routes(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := sitemap.Write(&buf, sitemap.FromRoutes(a.Config.URL, prerender.SitemapRoutes(routes))); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/xml; charset=utf-8", buf.Bytes())
}

func (a *App) handleRobots(c echo.Context) error {
	return c.String(http.StatusOK, sitemap.Robots(a.Config.URL, a.Config.Build.Disallow))
}
