package deploy

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.html":                 "<html>home</html>",
		"hotels/sea-view/index.html": "<html>hotel</html>",
		"sitemap.xml":                "<urlset/>",
		"robots.txt":                 "User-agent: *",
		"static/app.css":             "body{}",
		"static/app.js":              "console.log(1)",
		"static/logo.svg":            "<svg/>",
		"static/font.woff2":          "font",
	}
	for name, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

func TestCategory(t *testing.T) {
	tests := map[string]string{
		"index.html":  "html",
		"sitemap.xml": "xml",
		"robots.txt":  "txt",
		"a.CSS":       "css",
		"b.mjs":       "js",
		"c.webp":      "image",
		"d.woff2":     "other",
		"Makefile":    "other",
	}
	for name, want := range tests {
		assert.Equal(t, want, Category(name), name)
	}
}

func TestSummarize(t *testing.T) {
	sum, err := Summarize(buildDir(t))
	require.NoError(t, err)
	assert.Equal(t, 8, sum.Files)
	assert.Equal(t, map[string]int{"html": 2, "xml": 1, "txt": 1, "css": 1, "js": 1, "image": 1, "other": 1}, sum.Categories)
	assert.Equal(t, int64(len("<html>home</html>")+len("<html>hotel</html>")+len("<urlset/>")+len("User-agent: *")+
		len("body{}")+len("console.log(1)")+len("<svg/>")+len("font")), sum.Bytes)
}

func TestVerify(t *testing.T) {
	dir := buildDir(t)
	require.NoError(t, Verify(dir))

	require.NoError(t, os.Remove(filepath.Join(dir, "robots.txt")))
	err := Verify(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "robots.txt")

	assert.ErrorIs(t, Verify(t.TempDir()), ErrEmptyDir)
	assert.Error(t, Verify(filepath.Join(t.TempDir(), "missing")))
}

func TestSplitCommand(t *testing.T) {
	assert.Equal(t, []string{"rsync", "-a", "dist/", "host:/srv/www"}, SplitCommand("rsync  -a {dir}/ host:/srv/www", "dist"))
	assert.Empty(t, SplitCommand("   ", "dist"))
}

func TestPackageDryRun(t *testing.T) {
	dir := buildDir(t)
	target := filepath.Join(t.TempDir(), "site")
	res, err := Package(context.Background(), Options{Dir: dir, Target: target, Command: "upload {dir}", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Summary.Files)
	assert.Equal(t, []string{"upload", dir}, res.Command)
	assert.False(t, res.Ran)
	assert.NoFileExists(t, filepath.Join(dir, ManifestName))
	assert.NoDirExists(t, target)
}

func TestPackage(t *testing.T) {
	dir := buildDir(t)
	work := t.TempDir()
	target := filepath.Join(work, "site")
	archive := filepath.Join(work, "site.tar.gz")

	exe, err := os.Executable()
	require.NoError(t, err)
	var stdout bytes.Buffer
	res, err := Package(context.Background(), Options{
		Dir:     dir,
		Target:  target,
		Archive: archive,
		Command: exe + " -test.run=^$ {dir}",
		Stdout:  &stdout,
	})
	require.NoError(t, err)
	assert.True(t, res.Ran)
	assert.Equal(t, target, res.Target)
	assert.Equal(t, archive, res.Archive)

	data, err := os.ReadFile(res.Manifest)
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Len(t, m.Files, 8, "manifest excludes itself")
	assert.Equal(t, 8, m.Summary.Files)
	assert.False(t, m.Generated.IsZero())
	paths := make([]string, len(m.Files))
	for i, f := range m.Files {
		paths[i] = f.Path
	}
	assert.True(t, sort.StringsAreSorted(paths))
	for _, f := range m.Files {
		if f.Path == "index.html" {
			sum := sha256.Sum256([]byte("<html>home</html>"))
			assert.Equal(t, hex.EncodeToString(sum[:]), f.SHA256)
			assert.Equal(t, int64(17), f.Size)
		}
	}

	copied, err := os.ReadFile(filepath.Join(target, "hotels", "sea-view", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>hotel</html>", string(copied))
	assert.FileExists(t, filepath.Join(target, ManifestName))

	names := readArchive(t, archive)
	assert.Contains(t, names, "index.html")
	assert.Contains(t, names, ManifestName)
	assert.Contains(t, names, "static/app.css")
	assert.Len(t, names, 9)
}

func readArchive(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	return names
}

func TestPackageArchiveInsideDir(t *testing.T) {
	dir := buildDir(t)
	archive := filepath.Join(dir, "site.tar.gz")
	_, err := Package(context.Background(), Options{Dir: dir, Archive: archive})
	require.NoError(t, err)
	assert.NotContains(t, readArchive(t, archive), "site.tar.gz")
}

func TestPackageRejectsTargetInsideDir(t *testing.T) {
	dir := buildDir(t)
	_, err := Package(context.Background(), Options{Dir: dir, Target: filepath.Join(dir, "copy")})
	assert.Error(t, err)
}

func TestPackageCommandFailure(t *testing.T) {
	dir := buildDir(t)
	res, err := Package(context.Background(), Options{Dir: dir, Command: filepath.Join(t.TempDir(), "no-such-binary")})
	require.Error(t, err)
	assert.False(t, res.Ran)
}
