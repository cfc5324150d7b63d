package prerender

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/destino/seo"
)

// NotFoundRoute is rendered to 404.html when Driver.NotFound is set.
const NotFoundRoute = "/404"

// Driver renders routes in parallel and writes the resulting pages.
type Driver struct {
	// Renderer loads Origin+path. Nil writes every page without app HTML.
	Renderer Renderer
	Resolver *seo.Resolver
	Template *seo.Template
	Origin   string
	OutDir   string
	// Concurrency bounds the routes in flight. Defaults to 4.
	Concurrency int
	// Retries is the number of extra render attempts per route.
	Retries int
	// RouteTimeout bounds a single render attempt. Defaults to 30s.
	RouteTimeout time.Duration
	RootID       string
	// TrailingSlash writes <path>/index.html; otherwise <path>.html.
	TrailingSlash bool
	// NotFound also writes 404.html from NotFoundRoute.
	NotFound bool
	Logger   *zap.Logger
}

func (d *Driver) setDefaults() {
	if d.Concurrency <= 0 {
		d.Concurrency = 4
	}
	if d.Retries < 0 {
		d.Retries = 0
	}
	if d.RouteTimeout <= 0 {
		d.RouteTimeout = 30 * time.Second
	}
	if d.RootID == "" {
		d.RootID = DefaultRootID
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	d.Origin = strings.TrimRight(d.Origin, "/")
}

// Run prerenders routes. Per-route failures are recorded in the report and
// do not stop the run; the returned error is reserved for setup failures and
// cancellation.
func (d *Driver) Run(ctx context.Context, routes []Route) (*Report, error) {
	if d.Resolver == nil || d.Template == nil {
		return nil, errors.New("prerender: driver needs a resolver and a template")
	}
	d.setDefaults()
	if err := os.MkdirAll(d.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	start := time.Now()
	results := make([]Result, len(routes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Concurrency)
	for i, r := range routes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.renderRoute(gctx, r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, res := range results {
		report.add(res)
	}
	if d.NotFound {
		report.add(d.renderNotFound(ctx))
	}
	report.Duration = time.Since(start)
	d.Logger.Info("prerender finished",
		zap.Int("rendered", report.Rendered),
		zap.Int("fallbacks", report.Fallbacks),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (d *Driver) renderRoute(ctx context.Context, r Route) Result {
	start := time.Now()
	res := Result{Path: r.Path}
	log := d.Logger.With(zap.String("route", r.Path))

	meta, err := d.Resolver.Resolve(ctx, r.Path)
	if err != nil {
		res.MetaFallback = true
		res.Warnings = append(res.Warnings, "metadata: "+err.Error())
		log.Warn("metadata fallback", zap.Error(err))
	}
	if r.NoIndex {
		meta.Robots = seo.RobotsNoIndex
	}

	app, err := d.renderApp(ctx, r.Path, false)
	if err != nil {
		res.RenderFallback = true
		res.Warnings = append(res.Warnings, "render: "+err.Error())
		log.Warn("render fallback", zap.Error(err))
	}

	res.File, res.Bytes, res.Err = d.write(d.filePath(r.Path), meta, app)
	if res.Err != nil {
		log.Error("write failed", zap.Error(res.Err))
	}
	res.Duration = time.Since(start)
	return res
}

func (d *Driver) renderNotFound(ctx context.Context) Result {
	start := time.Now()
	res := Result{Path: NotFoundRoute}

	meta := seo.NotFound(d.Resolver.Site)

	app, err := d.renderApp(ctx, NotFoundRoute, true)
	if err != nil {
		res.RenderFallback = true
		res.Warnings = append(res.Warnings, "render: "+err.Error())
		d.Logger.Warn("render fallback", zap.String("route", NotFoundRoute), zap.Error(err))
	}
	res.File, res.Bytes, res.Err = d.write(filepath.Join(d.OutDir, "404.html"), meta, app)
	res.Duration = time.Since(start)
	return res
}

// renderApp renders path with retries and extracts the application root.
// A 404 response body is accepted when notFound is set.
func (d *Driver) renderApp(ctx context.Context, path string, notFound bool) (string, error) {
	if d.Renderer == nil {
		return "", nil
	}
	url := d.pageURL(path)
	var lastErr error
	for attempt := 0; attempt <= d.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
			d.Logger.Debug("retrying render", zap.String("url", url), zap.Int("attempt", attempt+1))
		}
		rctx, cancel := context.WithTimeout(ctx, d.RouteTimeout)
		dom, err := d.Renderer.Render(rctx, url)
		cancel()
		if err != nil {
			var se *StatusError
			if notFound && errors.As(err, &se) && se.Code == http.StatusNotFound {
				return ExtractApp(se.Body, d.RootID)
			}
			lastErr = err
			continue
		}
		return ExtractApp(dom, d.RootID)
	}
	return "", lastErr
}

func (d *Driver) pageURL(path string) string {
	if path == "/" {
		return d.Origin + "/"
	}
	return d.Origin + path + "/"
}

// filePath maps a route to its output file.
func (d *Driver) filePath(path string) string {
	rel := strings.Trim(path, "/")
	if rel == "" {
		return filepath.Join(d.OutDir, "index.html")
	}
	if d.TrailingSlash {
		return filepath.Join(d.OutDir, filepath.FromSlash(rel), "index.html")
	}
	return filepath.Join(d.OutDir, filepath.FromSlash(rel)+".html")
}

func (d *Driver) write(file string, meta seo.Meta, app string) (string, int, error) {
	page, err := d.Template.Execute(meta, app)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return "", 0, fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(file, page, 0o644); err != nil {
		return "", 0, fmt.Errorf("write file: %w", err)
	}
	rel, err := filepath.Rel(d.OutDir, file)
	if err != nil {
		rel = file
	}
	return filepath.ToSlash(rel), len(page), nil
}
