// Package destino is a tourism directory site (hotels, restaurants, events,
// activities, businesses and a blog) built with Go, Echo, and templ.
// It provides public pages, user submissions, an admin moderation panel,
// RSS and sitemap out of the box. Every page's <head> comes from the seo
// package, the same synthesis the prerender pipeline writes into static
// snapshots.
package destino

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/seo"
)

// App is the central destino application. It wires together the store,
// cache, SEO resolver, handlers and middleware.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Cache    *ContentCache
	Resolver *seo.Resolver

	logger        *zap.Logger
	loginLimiter  *RateLimiter
	submitLimiter *RateLimiter
	customRoutes  []func(*App)
	staticDir     string
	snapshotDir   string
}

// New creates a new destino App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:      cfg,
		Echo:        echo.New(),
		logger:      zap.NewNop(),
		staticDir:   cfg.StaticDir,
		snapshotDir: cfg.SnapshotDir,
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store and registers middleware and routes without
// listening, so the app can also serve as an in-process prerender origin.
func (a *App) Init() error {
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("destino: %w", err)
	}

	store, err := NewStore(a.Config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("destino: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewContentCache(a.Store, a.Config.CacheTTL)
	a.Resolver = &seo.Resolver{Site: a.Config.Site(), Source: a.Source()}

	a.loginLimiter = NewRateLimiter(5, time.Minute)
	a.submitLimiter = NewRateLimiter(a.Config.SubmitLimit, time.Hour)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app if needed and serves until the server is closed.
func (a *App) Start() error {
	if a.Store == nil {
		if err := a.Init(); err != nil {
			return err
		}
	}
	a.logger.Info("listening", zap.String("addr", a.Config.Addr), zap.String("url", a.Config.URL))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	// User's static assets
	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)

	// Public routes
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	for _, kind := range content.ListingKinds {
		e.GET(kind.Prefix()+"/", a.handleIndex(kind))
		e.GET(kind.Prefix()+"/:slug/", a.handleListing(kind))
	}
	e.GET("/blog/", a.handleBlog)
	e.GET("/blog/:slug/", a.handlePost)
	for _, route := range a.pageRoutes() {
		e.GET(route+"/", a.handlePage(route))
	}
	e.GET("/submit/:kind/", a.handleSubmitForm)
	e.POST("/submit/:kind/", a.handleSubmit)

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/token/", a.handleAdminToken)
	e.POST("/admin/logout/", handleAdminLogout)

	admin := e.Group("/admin", a.requireAdmin)
	admin.GET("/listings/new/", a.handleAdminNewListing)
	admin.GET("/listings/:id/", a.handleAdminListing)
	admin.POST("/listings/save/", a.handleAdminSaveListing)
	admin.POST("/listings/:id/:action/", a.handleAdminModerateListing)
	admin.GET("/posts/new/", a.handleAdminNewPost)
	admin.GET("/posts/:slug/", a.handleAdminPost)
	admin.POST("/posts/save/", a.handleAdminSavePost)
	admin.POST("/posts/:slug/:action/", a.handleAdminModeratePost)
	admin.GET("/seo/", a.handleAdminSEO)
	admin.POST("/seo/save/", a.handleAdminSaveSEO)
	admin.POST("/seo/delete/", a.handleAdminDeleteSEO)
	admin.GET("/blocks/", a.handleAdminBlocks)
	admin.POST("/blocks/save/", a.handleAdminSaveBlock)
	admin.POST("/blocks/:id/toggle/", a.handleAdminToggleBlock)
	admin.POST("/blocks/:id/delete/", a.handleAdminDeleteBlock)
}

// pageRoutes are the CMS pages served from content blocks, sorted.
func (a *App) pageRoutes() []string {
	routes := make([]string, 0, len(seo.DefaultTitles))
	for r := range seo.DefaultTitles {
		routes = append(routes, r)
	}
	sort.Strings(routes)
	return routes
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.submitLimiter != nil {
		a.submitLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
