package destino

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/views"
)

// homeListings is the number of listings per kind shown on the home page.
const homeListings = 6

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	data := views.HomeData{SiteName: a.Config.Name, Description: a.Config.Description}
	for _, kind := range content.ListingKinds {
		listings, err := a.Cache.ListListings(ctx, kind)
		if err != nil {
			return err
		}
		if len(listings) > homeListings {
			listings = listings[:homeListings]
		}
		data.Sections = append(data.Sections, views.Section{
			Kind:     kind,
			Label:    kind.Label(),
			Prefix:   kind.Prefix(),
			Listings: listings,
		})
	}
	posts, err := a.Cache.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	if len(posts) > 3 {
		posts = posts[:3]
	}
	data.Posts = posts
	return a.renderRoute(c, "/", views.Home(data))
}

func (a *App) handleIndex(kind content.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		listings, err := a.Cache.ListListings(c.Request().Context(), kind)
		if err != nil {
			return err
		}
		return a.renderRoute(c, kind.Prefix(), views.Index(kind, listings))
	}
}

func (a *App) handleListing(kind content.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		l, err := a.Cache.GetListing(c.Request().Context(), kind, c.Param("slug"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return a.renderNotFound(c)
			}
			return err
		}
		return a.renderRoute(c, l.Path(), views.Listing(l))
	}
}

func (a *App) handleBlog(c echo.Context) error {
	ctx := c.Request().Context()
	tag := c.QueryParam("tag")
	posts, err := a.Cache.ListPosts(ctx, tag)
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags(ctx)
	if err != nil {
		return err
	}
	return a.renderRoute(c, content.KindBlog.Prefix(), views.Blog(views.BlogData{
		Posts:     posts,
		Tags:      tags,
		ActiveTag: tag,
	}))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Cache.GetPost(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return a.renderNotFound(c)
		}
		return err
	}
	posts, err := a.Cache.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	return a.renderRoute(c, post.Path(), views.Post(post, posts))
}

func (a *App) handlePage(route string) echo.HandlerFunc {
	return func(c echo.Context) error {
		blocks, err := a.Store.ListBlocks(c.Request().Context(), route, true)
		if err != nil {
			return err
		}
		return a.renderRoute(c, route, views.StaticPage(a.Resolver.Title(route), blocks))
	}
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = a.renderNotFound(c)
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.logger.Error("server error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		_ = RenderStatus(c, code, views.Page(a.layout("/500", a.noIndexMeta("Error")), views.ServerError()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
