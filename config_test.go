package destino

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/destino/content"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing config file is not an error")

	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "public", cfg.StaticDir)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "dist", cfg.Build.Out)
	assert.Equal(t, "http", cfg.Build.Renderer)
	assert.Equal(t, 4, cfg.Build.Concurrency)
	assert.Equal(t, "public", cfg.Build.Assets)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "destino.yaml")
	yaml := `
name: Visit Kas
url: https://visitkas.example/
description: Hotels, food and events in Kas
cache_ttl: 1m
build:
  out: out
  renderer: browser
  concurrency: 8
  route_timeout: 10s
  kinds: [hotels, blog]
  routes:
    - path: /
      priority: 1
    - path: /about
  browser:
    no_sandbox: true
  validate:
    min_bytes: 2048
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("SITE_URL", "https://kas.example")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Visit Kas", cfg.Name)
	assert.Equal(t, "https://kas.example", cfg.URL, "environment wins over the file")
	assert.Equal(t, "hunter2", cfg.AdminPassword)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, "out", cfg.Build.Out)
	assert.Equal(t, 8, cfg.Build.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Build.RouteTimeout)
	assert.True(t, cfg.Build.Browser.NoSandbox)
	assert.EqualValues(t, 2048, cfg.Build.Validate.MinBytes)
	require.Len(t, cfg.Build.Routes, 2)
	assert.Equal(t, "/about", cfg.Build.Routes[1].Path)

	kinds, err := cfg.Build.ParseKinds()
	require.NoError(t, err)
	assert.Equal(t, []content.Kind{content.KindHotel, content.KindBlog}, kinds)

	site := cfg.Site()
	assert.Equal(t, "Visit Kas", site.Name)
	assert.Equal(t, "https://kas.example", site.URL)
}

func TestLoadConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("COOKIE_SECURE", "sometimes")
	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "COOKIE_SECURE")
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "destino.yaml")
	require.NoError(t, os.WriteFile(path, []byte("build: [unclosed"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := SiteConfig{}
	cfg.setDefaults()
	cfg.Build.Renderer = "pdf"
	cfg.Build.Kinds = []string{"castles"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "ADMIN_PASSWORD or AUTH_JWT_SECRET")
	assert.ErrorContains(t, err, "ADMIN_SESSION_SECRET")
	assert.ErrorContains(t, err, `unknown renderer "pdf"`)
	assert.ErrorIs(t, err, content.ErrInvalidKind)

	cfg = SiteConfig{JWTSecret: "jwt", SessionSecret: "session"}
	cfg.setDefaults()
	assert.NoError(t, cfg.Validate())
}
