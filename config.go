package destino

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/prerender"
	"github.com/eringen/destino/seo"
)

// SiteConfig holds all configuration for a destino site.
type SiteConfig struct {
	Name           string `yaml:"name"`            // Site name (default "Destino")
	URL            string `yaml:"url"`             // Canonical URL (default "http://localhost:3000")
	Description    string `yaml:"description"`     // Site description for RSS and meta tags
	Author         string `yaml:"author"`          // Author name for JSON-LD
	DefaultImage   string `yaml:"default_image"`   // og:image fallback, absolute or site-relative
	Language       string `yaml:"language"`        // html lang (default "en")
	Locale         string `yaml:"locale"`          // og:locale (default "en_US")
	Twitter        string `yaml:"twitter"`         // twitter:site handle
	TitleSeparator string `yaml:"title_separator"` // between page title and site name (default " | ")

	Addr        string `yaml:"addr"`         // Listen address (default ":3000")
	DatabaseURL string `yaml:"database_url"` // postgres:// DSN or SQLite path (default "data/destino.db")
	StaticDir   string `yaml:"static_dir"`   // User-owned assets served under /public (default "public")
	SnapshotDir string `yaml:"snapshot_dir"` // Prerendered pages served to crawlers when set

	AdminPassword string `yaml:"admin_password"` // admin login password
	SessionSecret string `yaml:"session_secret"` // session encryption secret
	JWTSecret     string `yaml:"jwt_secret"`     // HS256 secret of the hosted auth service
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	CacheTTL    time.Duration `yaml:"cache_ttl"`    // Content cache TTL (default 5m)
	SubmitLimit int           `yaml:"submit_limit"` // Submissions per IP per hour (default 5)

	Build BuildConfig `yaml:"build"`
}

// BuildConfig configures the build → prerender → validate → deploy pipeline.
type BuildConfig struct {
	Out          string                  `yaml:"out"`           // Output directory (default "dist")
	Shell        string                  `yaml:"shell"`         // HTML shell with the placeholders (default "shell.html")
	Origin       string                  `yaml:"origin"`        // Empty starts the site in-process
	Renderer     string                  `yaml:"renderer"`      // "http" (default) or "browser"
	Concurrency  int                     `yaml:"concurrency"`   // Default 4
	Retries      int                     `yaml:"retries"`       // Extra attempts per route (default 2)
	RouteTimeout time.Duration           `yaml:"route_timeout"` // Default 30s
	FlatFiles    bool                    `yaml:"flat_files"`    // Write <path>.html instead of <path>/index.html
	SkipNotFound bool                    `yaml:"skip_404"`      // Do not write 404.html
	Clean        bool                    `yaml:"clean"`         // Empty Out before building
	Assets       string                  `yaml:"assets"`        // Copied into Out (default StaticDir)
	AssetsPrefix string                  `yaml:"assets_prefix"` // Default "public"
	Routes       []prerender.StaticRoute `yaml:"routes"`        // Default prerender.DefaultStaticRoutes
	Kinds        []string                `yaml:"kinds"`         // Default prerender.DefaultKinds
	Disallow     []string                `yaml:"disallow"`      // robots.txt Disallow lines (default /admin/)
	Browser      BrowserConfig           `yaml:"browser"`
	Validate     ValidateConfig          `yaml:"validate"`
	Deploy       DeployConfig            `yaml:"deploy"`
}

// BrowserConfig configures the headless Chrome renderer.
type BrowserConfig struct {
	ControlURL    string        `yaml:"control_url"`
	Bin           string        `yaml:"bin"`
	NoSandbox     bool          `yaml:"no_sandbox"`
	ReadySelector string        `yaml:"ready_selector"`
	Settle        time.Duration `yaml:"settle"`
}

// ValidateConfig configures output validation.
type ValidateConfig struct {
	SampleSize int   `yaml:"sample_size"`
	MinBytes   int64 `yaml:"min_bytes"`
	Strict     bool  `yaml:"strict"`
}

// DeployConfig configures the hand-off to static hosting.
type DeployConfig struct {
	Target  string `yaml:"target"`
	Archive string `yaml:"archive"`
	Command string `yaml:"command"`
}

// envOverrides maps environment variables onto config fields.
var envOverrides = map[string]func(c *SiteConfig, v string) error{
	"SITE_NAME":            func(c *SiteConfig, v string) error { c.Name = v; return nil },
	"SITE_URL":             func(c *SiteConfig, v string) error { c.URL = v; return nil },
	"SITE_DESCRIPTION":     func(c *SiteConfig, v string) error { c.Description = v; return nil },
	"SITE_AUTHOR":          func(c *SiteConfig, v string) error { c.Author = v; return nil },
	"DATABASE_URL":         func(c *SiteConfig, v string) error { c.DatabaseURL = v; return nil },
	"LISTEN_ADDR":          func(c *SiteConfig, v string) error { c.Addr = v; return nil },
	"ADMIN_PASSWORD":       func(c *SiteConfig, v string) error { c.AdminPassword = v; return nil },
	"ADMIN_SESSION_SECRET": func(c *SiteConfig, v string) error { c.SessionSecret = v; return nil },
	"AUTH_JWT_SECRET":      func(c *SiteConfig, v string) error { c.JWTSecret = v; return nil },
	"SNAPSHOT_DIR":         func(c *SiteConfig, v string) error { c.SnapshotDir = v; return nil },
	"PRERENDER_ORIGIN":     func(c *SiteConfig, v string) error { c.Build.Origin = v; return nil },
	"COOKIE_SECURE": func(c *SiteConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.CookieSecure = b
		return nil
	},
}

// LoadConfig reads .env (if present), then the YAML file at path (if
// present), then environment overrides, and fills in defaults.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	_ = godotenv.Load()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	}

	for key, apply := range envOverrides {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		if err := apply(&cfg, v); err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Destino"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Language == "" {
		c.Language = "en"
	}
	if c.Locale == "" {
		c.Locale = "en_US"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "data/destino.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.SubmitLimit == 0 {
		c.SubmitLimit = 5
	}

	b := &c.Build
	if b.Out == "" {
		b.Out = "dist"
	}
	if b.Shell == "" {
		b.Shell = "shell.html"
	}
	if b.Renderer == "" {
		b.Renderer = "http"
	}
	if b.Concurrency == 0 {
		b.Concurrency = 4
	}
	if b.Retries == 0 {
		b.Retries = 2
	}
	if b.RouteTimeout == 0 {
		b.RouteTimeout = 30 * time.Second
	}
	if b.Assets == "" {
		b.Assets = c.StaticDir
	}
	if b.AssetsPrefix == "" {
		b.AssetsPrefix = "public"
	}
}

// Validate reports the settings the server cannot run without.
func (c SiteConfig) Validate() error {
	var errs []error
	if c.AdminPassword == "" && c.JWTSecret == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD or AUTH_JWT_SECRET is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("ADMIN_SESSION_SECRET is required"))
	}
	if _, err := c.Build.ParseKinds(); err != nil {
		errs = append(errs, err)
	}
	switch c.Build.Renderer {
	case "http", "browser":
	default:
		errs = append(errs, fmt.Errorf("unknown renderer %q", c.Build.Renderer))
	}
	return errors.Join(errs...)
}

// ParseKinds returns the configured kinds, or nil for the default set.
func (b BuildConfig) ParseKinds() ([]content.Kind, error) {
	if len(b.Kinds) == 0 {
		return nil, nil
	}
	kinds := make([]content.Kind, 0, len(b.Kinds))
	for _, s := range b.Kinds {
		k, err := content.ParseKind(s)
		if err != nil {
			return nil, fmt.Errorf("build kind %q: %w", s, err)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Site returns the values page metadata falls back to.
func (c SiteConfig) Site() seo.Site {
	return seo.Site{
		Name:           c.Name,
		URL:            c.URL,
		Description:    c.Description,
		DefaultImage:   c.DefaultImage,
		Language:       c.Language,
		Locale:         c.Locale,
		Twitter:        c.Twitter,
		Author:         c.Author,
		TitleSeparator: c.TitleSeparator,
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger sets the application logger (default no-op).
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithSnapshotDir serves prerendered pages from dir to known crawlers.
func WithSnapshotDir(dir string) Option {
	return func(a *App) {
		a.snapshotDir = dir
	}
}
