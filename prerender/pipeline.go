package prerender

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/sitemap"
	"github.com/eringen/destino/validate"
)

// ErrValidation is returned by a strict pipeline whose output failed validation.
var ErrValidation = errors.New("prerendered output failed validation")

// Pipeline runs build, prerender, sitemap/robots and validation in order.
type Pipeline struct {
	Driver *Driver
	Source Source
	Static []StaticRoute
	Kinds  []content.Kind
	// Disallow lists robots.txt exclusions; nil uses sitemap.DefaultDisallow.
	Disallow []string
	// AssetsDir is copied into the output under AssetsPrefix.
	AssetsDir    string
	AssetsPrefix string
	// Clean empties the output directory before building.
	Clean    bool
	Validate validate.Options
	// Strict turns validation failures into a pipeline error.
	Strict bool
	Logger *zap.Logger
}

// Summary is the combined outcome of a pipeline run.
type Summary struct {
	Routes     []Route
	Report     *Report
	Validation *validate.Summary
	Duration   time.Duration
}

// Run executes every stage. A stage error stops the run; route write
// failures are reported after sitemap and validation have run.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Driver.Logger == nil {
		p.Driver.Logger = p.Logger
	}
	start := time.Now()
	out := p.Driver.OutDir

	if err := p.build(out); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	static := p.Static
	if static == nil {
		static = DefaultStaticRoutes
	}
	kinds := p.Kinds
	if kinds == nil {
		kinds = DefaultKinds
	}
	routes, err := Enumerate(ctx, p.Source, static, kinds)
	if err != nil {
		return nil, fmt.Errorf("enumerate routes: %w", err)
	}
	p.Logger.Info("routes enumerated", zap.Int("count", len(routes)))

	report, err := p.Driver.Run(ctx, routes)
	if err != nil {
		return nil, fmt.Errorf("prerender: %w", err)
	}
	sum := &Summary{Routes: routes, Report: report}

	if err := p.writeSitemap(out, routes); err != nil {
		return sum, err
	}

	opts := p.Validate
	if opts.Dir == "" {
		opts.Dir = out
	}
	vs, err := validate.Dir(opts)
	if err != nil {
		return sum, fmt.Errorf("validate: %w", err)
	}
	sum.Validation = vs
	for _, r := range vs.Failed() {
		p.Logger.Warn("validation failed", zap.String("file", r.Path), zap.Strings("errors", r.Errors))
	}
	for _, m := range vs.Missing {
		p.Logger.Warn("required file missing", zap.String("file", m))
	}
	sum.Duration = time.Since(start)

	if err := report.Err(); err != nil {
		return sum, err
	}
	if p.Strict && !vs.OK() {
		return sum, ErrValidation
	}
	return sum, nil
}

func (p *Pipeline) build(out string) error {
	if p.Clean {
		if err := cleanDir(out); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	if p.AssetsDir == "" {
		return nil
	}
	prefix := p.AssetsPrefix
	if prefix == "" {
		prefix = "static"
	}
	dst := filepath.Join(out, prefix)
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	if err := os.CopyFS(dst, os.DirFS(p.AssetsDir)); err != nil {
		return fmt.Errorf("copy assets: %w", err)
	}
	return nil
}

// cleanDir removes the contents of dir, refusing the filesystem root and
// the working directory.
func cleanDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if abs == filepath.Dir(abs) {
		return fmt.Errorf("refusing to clean %s", abs)
	}
	if wd, err := os.Getwd(); err == nil && contains(abs, wd) {
		return fmt.Errorf("refusing to clean %s: it contains the working directory", abs)
	}
	entries, err := os.ReadDir(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(abs, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// contains reports whether dir is parent or equal to path.
func contains(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (p *Pipeline) writeSitemap(out string, routes []Route) error {
	base := p.Driver.Resolver.Site.URL
	f, err := os.Create(filepath.Join(out, "sitemap.xml"))
	if err != nil {
		return fmt.Errorf("create sitemap: %w", err)
	}
	if err := sitemap.Write(f, sitemap.FromRoutes(base, SitemapRoutes(routes))); err != nil {
		f.Close()
		return fmt.Errorf("write sitemap: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close sitemap: %w", err)
	}
	robots := sitemap.Robots(base, p.Disallow)
	if err := os.WriteFile(filepath.Join(out, "robots.txt"), []byte(robots), 0o644); err != nil {
		return fmt.Errorf("write robots: %w", err)
	}
	return nil
}
