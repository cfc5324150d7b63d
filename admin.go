package destino

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/views"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return a.renderAdmin(c, "Admin", views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if a.Config.AdminPassword != "" && subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		a.logger.Info("admin login", zap.String("ip", ip), zap.String("method", "password"))
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	a.logger.Warn("admin login failed", zap.String("ip", ip))
	return a.renderAdminStatus(c, http.StatusUnauthorized, "Admin", views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

// requireAdmin sends unauthenticated requests to the login page.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAdmin(c) {
			return c.Redirect(http.StatusSeeOther, "/admin/")
		}
		return next(c)
	}
}

func redirectMsg(c echo.Context, path, msg string) error {
	if msg != "" {
		path += "?msg=" + url.QueryEscape(msg)
	}
	return c.Redirect(http.StatusSeeOther, path)
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	ctx := c.Request().Context()
	d := views.DashboardData{Message: msg, CSRF: CsrfToken(c)}
	for _, kind := range content.ListingKinds {
		listings, err := a.Store.ListListings(ctx, kind, "")
		if err != nil {
			return err
		}
		d.Listings = append(d.Listings, listings...)
	}
	var err error
	if d.PendingListings, err = a.Store.ListPending(ctx); err != nil {
		return err
	}
	if d.PendingPosts, err = a.Store.ListPendingPosts(ctx); err != nil {
		return err
	}
	if d.Posts, err = a.Store.ListAllPosts(ctx); err != nil {
		return err
	}
	return a.renderAdmin(c, "Moderation", views.AdminDashboard(d))
}

// ---- listings ----

func (a *App) handleAdminNewListing(c echo.Context) error {
	kind, err := content.ParseKind(c.QueryParam("kind"))
	if err != nil || !kind.IsListing() {
		kind = content.KindHotel
	}
	return a.renderAdmin(c, "New listing", views.AdminListing(views.ListingForm{
		Listing: content.Listing{Kind: kind},
		Kinds:   content.ListingKinds,
		CSRF:    CsrfToken(c),
	}))
}

func (a *App) handleAdminListing(c echo.Context) error {
	l, err := a.Store.GetListingByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return a.renderNotFound(c)
		}
		return err
	}
	return a.renderAdmin(c, l.Name, views.AdminListing(views.ListingForm{
		Listing: l,
		Kinds:   content.ListingKinds,
		CSRF:    CsrfToken(c),
	}))
}

// handleAdminSaveListing creates a listing, or edits one without changing
// its moderation status.
func (a *App) handleAdminSaveListing(c echo.Context) error {
	ctx := c.Request().Context()
	kind, err := content.ParseKind(c.FormValue("kind"))
	if err != nil || !kind.IsListing() {
		return redirectMsg(c, "/admin/", "Unknown listing kind.")
	}
	rating, _ := strconv.ParseFloat(strings.TrimSpace(c.FormValue("rating")), 64)
	if rating < 0 || rating > 5 {
		return redirectMsg(c, "/admin/", "Rating must be between 0 and 5.")
	}
	l := content.Listing{
		ID:          strings.TrimSpace(c.FormValue("id")),
		Kind:        kind,
		Slug:        content.Slugify(c.FormValue("slug")),
		Name:        strings.TrimSpace(c.FormValue("name")),
		Summary:     strings.TrimSpace(c.FormValue("summary")),
		Description: c.FormValue("description"),
		Address:     strings.TrimSpace(c.FormValue("address")),
		City:        strings.TrimSpace(c.FormValue("city")),
		Phone:       strings.TrimSpace(c.FormValue("phone")),
		Website:     strings.TrimSpace(c.FormValue("website")),
		PriceRange:  strings.TrimSpace(c.FormValue("price_range")),
		Rating:      rating,
		Cuisine:     strings.TrimSpace(c.FormValue("cuisine")),
		ImageURL:    strings.TrimSpace(c.FormValue("image_url")),
		StartsAt:    strings.TrimSpace(c.FormValue("starts_at")),
		EndsAt:      strings.TrimSpace(c.FormValue("ends_at")),
		Tags:        splitTags(c.FormValue("tags")),
		Status:      content.StatusApproved,
	}
	if l.Name == "" {
		return redirectMsg(c, "/admin/", "Name is required.")
	}
	if l.ID != "" {
		existing, err := a.Store.GetListingByID(ctx, l.ID)
		if err != nil {
			return err
		}
		if l.Status, err = Transition(existing.Status, ActionEdit); err != nil {
			return err
		}
		l.CreatedAt = existing.CreatedAt
		l.SubmittedBy = existing.SubmittedBy
		if l.Slug == "" {
			l.Slug = existing.Slug
		}
	}
	if l.Slug == "" {
		l.Slug = content.Slugify(l.Name)
	}
	if l.Slug != "" {
		owner, err := a.Store.GetListingByKindSlug(ctx, kind, l.Slug)
		switch {
		case err == nil && owner.ID != l.ID:
			return redirectMsg(c, "/admin/", fmt.Sprintf("Slug %q is already used by %s.", l.Slug, owner.Name))
		case err != nil && !errors.Is(err, ErrNotFound):
			return err
		}
	}
	saved, err := a.Store.SaveListing(ctx, l)
	if errors.Is(err, ErrInvalidSlug) {
		return redirectMsg(c, "/admin/", "Slug is required. Add a name or slug.")
	}
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.logger.Info("listing saved", zap.String("id", saved.ID), zap.String("path", saved.Path()))
	return redirectMsg(c, "/admin/", "saved")
}

func (a *App) handleAdminModerateListing(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	action := Action(c.Param("action"))
	if action == "delete" {
		if err := a.Store.DeleteListing(ctx, id); err != nil {
			return err
		}
		a.Cache.Invalidate()
		a.logger.Info("listing deleted", zap.String("id", id))
		return redirectMsg(c, "/admin/", "deleted")
	}
	l, err := a.ModerateListing(ctx, id, action)
	switch {
	case errors.Is(err, ErrNotFound):
		return a.renderNotFound(c)
	case errors.Is(err, ErrNoTransition), errors.Is(err, ErrUnknownAction):
		return redirectMsg(c, "/admin/", l.Name+": "+err.Error())
	case err != nil:
		return err
	}
	return redirectMsg(c, "/admin/", l.Name+" is now "+string(l.Status))
}

// ---- posts ----

func (a *App) handleAdminNewPost(c echo.Context) error {
	return a.renderAdmin(c, "New post", views.AdminPost(views.PostForm{
		Post: content.BlogPost{Date: today()},
		CSRF: CsrfToken(c),
	}))
}

func (a *App) handleAdminPost(c echo.Context) error {
	post, err := a.Store.GetPostAny(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return a.renderNotFound(c)
		}
		return err
	}
	return a.renderAdmin(c, post.Title, views.AdminPost(views.PostForm{Post: post, CSRF: CsrfToken(c)}))
}

func (a *App) handleAdminSavePost(c echo.Context) error {
	ctx := c.Request().Context()
	title := strings.TrimSpace(c.FormValue("title"))
	slug := content.Slugify(c.FormValue("slug"))
	if slug == "" {
		slug = content.Slugify(title)
	}
	if slug == "" {
		return redirectMsg(c, "/admin/", "Slug is required. Add a title or slug.")
	}
	date := strings.TrimSpace(c.FormValue("date"))
	if date == "" {
		date = today()
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return redirectMsg(c, "/admin/", "Invalid date format. Use YYYY-MM-DD.")
	}
	post := content.BlogPost{
		Slug:     slug,
		Title:    title,
		Date:     date,
		Tags:     splitTags(c.FormValue("tags")),
		Summary:  c.FormValue("summary"),
		Content:  c.FormValue("content"),
		ImageURL: strings.TrimSpace(c.FormValue("image_url")),
		Author:   strings.TrimSpace(c.FormValue("author")),
		Status:   content.StatusApproved,
	}

	original := content.Slugify(c.FormValue("original_slug"))
	if original != "" {
		existing, err := a.Store.GetPostAny(ctx, original)
		if err != nil {
			return err
		}
		if post.Status, err = Transition(existing.Status, ActionEdit); err != nil {
			return err
		}
	}
	if err := a.Store.SavePost(ctx, post); err != nil {
		return err
	}
	if original != "" && original != slug {
		if err := a.Store.DeletePost(ctx, original); err != nil {
			return err
		}
	}
	a.Cache.Invalidate()
	a.logger.Info("post saved", zap.String("slug", slug))
	return redirectMsg(c, "/admin/", "saved")
}

func (a *App) handleAdminModeratePost(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	action := Action(c.Param("action"))
	if action == "delete" {
		if err := a.Store.DeletePost(ctx, slug); err != nil {
			return err
		}
		a.Cache.Invalidate()
		a.logger.Info("post deleted", zap.String("slug", slug))
		return redirectMsg(c, "/admin/", "deleted")
	}
	p, err := a.ModeratePost(ctx, slug, action)
	switch {
	case errors.Is(err, ErrNotFound):
		return a.renderNotFound(c)
	case errors.Is(err, ErrNoTransition), errors.Is(err, ErrUnknownAction):
		return redirectMsg(c, "/admin/", p.Title+": "+err.Error())
	case err != nil:
		return err
	}
	return redirectMsg(c, "/admin/", p.Title+" is now "+string(p.Status))
}

// ---- SEO rows ----

func (a *App) handleAdminSEO(c echo.Context) error {
	ctx := c.Request().Context()
	entries, err := a.Store.ListSEO(ctx)
	if err != nil {
		return err
	}
	d := views.SEOData{Entries: entries, Message: c.QueryParam("msg"), CSRF: CsrfToken(c)}
	if route := c.QueryParam("route"); route != "" {
		e, err := a.Store.GetSEO(ctx, route)
		switch {
		case err == nil:
			d.Edit = e
		case errors.Is(err, ErrNotFound):
			d.Edit = content.SEOEntry{Route: content.NormalizeRoute(route)}
		default:
			return err
		}
	}
	return a.renderAdmin(c, "SEO", views.AdminSEO(d))
}

func (a *App) handleAdminSaveSEO(c echo.Context) error {
	route := strings.TrimSpace(c.FormValue("route"))
	if route == "" {
		return redirectMsg(c, "/admin/seo/", "Route is required.")
	}
	schema := strings.TrimSpace(c.FormValue("schema"))
	if schema != "" && !json.Valid([]byte(schema)) {
		return redirectMsg(c, "/admin/seo/", "JSON-LD is not valid JSON.")
	}
	e := content.SEOEntry{
		Route:       content.NormalizeRoute(route),
		Title:       strings.TrimSpace(c.FormValue("title")),
		Description: strings.TrimSpace(c.FormValue("description")),
		Keywords:    strings.TrimSpace(c.FormValue("keywords")),
		OGImage:     strings.TrimSpace(c.FormValue("og_image")),
		OGType:      strings.TrimSpace(c.FormValue("og_type")),
		Canonical:   strings.TrimSpace(c.FormValue("canonical")),
		Schema:      schema,
		NoIndex:     c.FormValue("noindex") != "",
	}
	if err := a.Store.SaveSEO(c.Request().Context(), e); err != nil {
		return err
	}
	a.logger.Info("seo row saved", zap.String("route", e.Route))
	return redirectMsg(c, "/admin/seo/", "saved "+e.Route)
}

func (a *App) handleAdminDeleteSEO(c echo.Context) error {
	route := content.NormalizeRoute(c.FormValue("route"))
	if err := a.Store.DeleteSEO(c.Request().Context(), route); err != nil {
		return err
	}
	return redirectMsg(c, "/admin/seo/", "deleted "+route)
}

// ---- content blocks ----

func (a *App) blockRoutes() []string {
	routes := append([]string{"/"}, a.pageRoutes()...)
	for _, k := range content.Kinds {
		routes = append(routes, k.Prefix())
	}
	sort.Strings(routes)
	return routes
}

func (a *App) handleAdminBlocks(c echo.Context) error {
	route := content.NormalizeRoute(c.QueryParam("route"))
	if c.QueryParam("route") == "" {
		route = "/about"
	}
	blocks, err := a.Store.ListBlocks(c.Request().Context(), route, false)
	if err != nil {
		return err
	}
	return a.renderAdmin(c, "Page content", views.AdminBlocks(views.BlocksData{
		Route:   route,
		Routes:  a.blockRoutes(),
		Blocks:  blocks,
		Message: c.QueryParam("msg"),
		CSRF:    CsrfToken(c),
	}))
}

func blocksURL(route string) string {
	return "/admin/blocks/?route=" + url.QueryEscape(route)
}

func (a *App) handleAdminSaveBlock(c echo.Context) error {
	position, _ := strconv.Atoi(strings.TrimSpace(c.FormValue("position")))
	b := content.ContentBlock{
		Route:    c.FormValue("route"),
		Key:      c.FormValue("key"),
		Title:    strings.TrimSpace(c.FormValue("title")),
		Body:     c.FormValue("body"),
		Position: position,
		Visible:  c.FormValue("visible") != "",
	}
	saved, err := a.Store.SaveBlock(c.Request().Context(), b)
	if errors.Is(err, ErrInvalidSlug) {
		return c.Redirect(http.StatusSeeOther, blocksURL(content.NormalizeRoute(b.Route))+"&msg="+url.QueryEscape("Key is required."))
	}
	if err != nil {
		return err
	}
	a.logger.Info("block saved", zap.String("route", saved.Route), zap.String("key", saved.Key))
	return c.Redirect(http.StatusSeeOther, blocksURL(saved.Route))
}

func (a *App) handleAdminToggleBlock(c echo.Context) error {
	ctx := c.Request().Context()
	b, err := a.Store.GetBlock(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return a.renderNotFound(c)
		}
		return err
	}
	if err := a.Store.SetBlockVisible(ctx, b.ID, !b.Visible); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, blocksURL(b.Route))
}

func (a *App) handleAdminDeleteBlock(c echo.Context) error {
	ctx := c.Request().Context()
	b, err := a.Store.GetBlock(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return a.renderNotFound(c)
		}
		return err
	}
	if err := a.Store.DeleteBlock(ctx, b.ID); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, blocksURL(b.Route))
}
