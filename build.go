package destino

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eringen/destino/prerender"
	"github.com/eringen/destino/seo"
	"github.com/eringen/destino/validate"
)

// NewRenderer returns the renderer named by b.Renderer and a func that
// releases it.
func NewRenderer(ctx context.Context, b BuildConfig) (prerender.Renderer, func() error, error) {
	switch b.Renderer {
	case "", "http":
		return prerender.NewHTTPRenderer(b.RouteTimeout), func() error { return nil }, nil
	case "browser":
		r, err := prerender.NewBrowserRenderer(ctx, prerender.BrowserOptions{
			ControlURL:    b.Browser.ControlURL,
			Bin:           b.Browser.Bin,
			NoSandbox:     b.Browser.NoSandbox,
			ReadySelector: b.Browser.ReadySelector,
			Settle:        b.Browser.Settle,
			Timeout:       b.RouteTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown renderer %q", b.Renderer)
}

// NewPipeline assembles the build pipeline for cfg. Pages are rendered from
// origin and their metadata is resolved from src.
func NewPipeline(cfg SiteConfig, src prerender.Source, r prerender.Renderer, origin string, logger *zap.Logger) (*prerender.Pipeline, error) {
	b := cfg.Build
	shell, err := os.ReadFile(b.Shell)
	if err != nil {
		return nil, fmt.Errorf("read shell: %w", err)
	}
	tmpl, err := seo.ParseTemplate(shell)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Shell, err)
	}
	if !tmpl.HasBody() {
		logger.Warn("shell has no body placeholder; pages will carry metadata only", zap.String("shell", b.Shell))
	}
	kinds, err := b.ParseKinds()
	if err != nil {
		return nil, err
	}
	assets := b.Assets
	if fi, err := os.Stat(assets); err != nil || !fi.IsDir() {
		assets = ""
	}
	return &prerender.Pipeline{
		Driver: &prerender.Driver{
			Renderer:      r,
			Resolver:      &seo.Resolver{Site: cfg.Site(), Source: src},
			Template:      tmpl,
			Origin:        origin,
			OutDir:        b.Out,
			Concurrency:   b.Concurrency,
			Retries:       b.Retries,
			RouteTimeout:  b.RouteTimeout,
			TrailingSlash: !b.FlatFiles,
			NotFound:      !b.SkipNotFound,
			Logger:        logger,
		},
		Source:       src,
		Static:       b.Routes,
		Kinds:        kinds,
		Disallow:     b.Disallow,
		AssetsDir:    assets,
		AssetsPrefix: b.AssetsPrefix,
		Clean:        b.Clean,
		Validate: validate.Options{
			SampleSize: b.Validate.SampleSize,
			MinBytes:   b.Validate.MinBytes,
		},
		Strict: b.Validate.Strict,
		Logger: logger,
	}, nil
}

// ServeOrigin serves the app on a loopback port and returns its URL. The
// returned func shuts the server down.
func (a *App) ServeOrigin() (string, func(context.Context) error, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: a.Echo}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("build origin stopped", zap.Error(err))
		}
	}()
	origin := "http://" + ln.Addr().String()
	a.logger.Debug("build origin listening", zap.String("origin", origin))
	return origin, srv.Shutdown, nil
}

// Build runs the build → prerender → validate pipeline. With no configured
// origin the site is started in-process on a loopback port; otherwise pages
// are fetched from the origin and metadata is read from the database.
func Build(ctx context.Context, cfg SiteConfig, logger *zap.Logger) (*prerender.Summary, error) {
	cfg.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		src    prerender.Source
		origin = cfg.Build.Origin
	)
	if origin == "" {
		// The in-process origin is never logged into.
		if cfg.SessionSecret == "" {
			cfg.SessionSecret = uuid.NewString()
		}
		if cfg.AdminPassword == "" && cfg.JWTSecret == "" {
			cfg.JWTSecret = uuid.NewString()
		}
		cfg.SnapshotDir = ""
		app := New(cfg, WithLogger(logger.Named("origin")))
		if err := app.Init(); err != nil {
			return nil, err
		}
		defer app.Close()
		var stop func(context.Context) error
		var err error
		origin, stop, err = app.ServeOrigin()
		if err != nil {
			return nil, fmt.Errorf("start build origin: %w", err)
		}
		defer stop(context.Background())
		src = app.Source()
	} else {
		store, err := NewStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		defer store.Close()
		src = store
	}

	r, release, err := NewRenderer(ctx, cfg.Build)
	if err != nil {
		return nil, err
	}
	defer release()

	p, err := NewPipeline(cfg, src, r, origin, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("building", zap.String("origin", origin), zap.String("out", cfg.Build.Out), zap.String("renderer", cfg.Build.Renderer))
	return p.Run(ctx)
}
