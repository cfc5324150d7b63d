package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eringen/destino"
)

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "destino dev\n", buf.String())
}

func TestRelevant(t *testing.T) {
	dir := t.TempDir()
	cfg = destino.SiteConfig{Build: destino.BuildConfig{
		Shell:  filepath.Join(dir, "shell.html"),
		Assets: filepath.Join(dir, "public"),
	}}
	configPath = filepath.Join(dir, "destino.yaml")
	t.Cleanup(func() {
		cfg = destino.SiteConfig{}
		configPath = "destino.yaml"
	})

	assert.True(t, relevant(filepath.Join(dir, "shell.html")))
	assert.True(t, relevant(filepath.Join(dir, "destino.yaml")))
	assert.True(t, relevant(filepath.Join(dir, "public", "css", "app.css")))
	assert.False(t, relevant(filepath.Join(dir, "dist", "index.html")))
	assert.False(t, relevant(filepath.Join(dir, "publicity.txt")))
	assert.False(t, relevant(filepath.Join(dir, "data", "site.db-wal")))
}

func TestWatchPaths(t *testing.T) {
	dir := t.TempDir()
	assets := filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(filepath.Join(assets, "img"), 0o755))
	cfg = destino.SiteConfig{Build: destino.BuildConfig{
		Shell:  filepath.Join(dir, "shell.html"),
		Assets: assets,
	}}
	configPath = filepath.Join(dir, "destino.yaml")
	t.Cleanup(func() {
		cfg = destino.SiteConfig{}
		configPath = "destino.yaml"
	})

	assert.ElementsMatch(t, []string{dir, assets, filepath.Join(assets, "img")}, watchPaths())
}

func TestValidateCommandReportsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html><head><title>x</title></head><body></body></html>"), 0o644))
	logger = zap.NewNop()
	cfg = destino.SiteConfig{}
	t.Cleanup(func() { cfg = destino.SiteConfig{} })

	var buf bytes.Buffer
	validateCmd.SetOut(&buf)
	t.Cleanup(func() { validateCmd.SetOut(nil) })

	err := runValidate(validateCmd, []string{dir})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "missing sitemap.xml")
	assert.Contains(t, buf.String(), "missing robots.txt")
	assert.Contains(t, buf.String(), "FAIL index.html")
}

func TestReloadConfigPicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "destino.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Visit Kas\nbuild:\n  out: dist-a\n  concurrency: 2\n"), 0o644))
	configPath = path
	t.Cleanup(func() {
		cfg = destino.SiteConfig{}
		configPath = "destino.yaml"
		_ = buildCmd.Flags().Set("renderer", "")
	})
	require.NoError(t, buildCmd.Flags().Set("renderer", "browser"))

	require.NoError(t, reloadConfig(buildCmd))
	assert.Equal(t, "Visit Kas", cfg.Name)
	assert.Equal(t, "dist-a", cfg.Build.Out)
	assert.Equal(t, 2, cfg.Build.Concurrency)
	assert.Equal(t, "browser", cfg.Build.Renderer, "flags still win over the file")

	require.NoError(t, os.WriteFile(path, []byte("name: Visit Kas Old Town\nbuild:\n  out: dist-b\n"), 0o644))
	require.NoError(t, reloadConfig(buildCmd))
	assert.Equal(t, "Visit Kas Old Town", cfg.Name)
	assert.Equal(t, "dist-b", cfg.Build.Out)
	assert.Equal(t, 4, cfg.Build.Concurrency, "removed settings fall back to defaults")
	assert.Equal(t, "browser", cfg.Build.Renderer)

	require.NoError(t, os.WriteFile(path, []byte("build: [not, a, map"), 0o644))
	assert.Error(t, reloadConfig(buildCmd))
	assert.Equal(t, "dist-b", cfg.Build.Out, "a broken file keeps the previous config")
}
