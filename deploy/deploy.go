// Package deploy verifies a prerendered output directory, records a
// manifest of its files and hands it off to static hosting by copying,
// archiving and/or running an upload command.
package deploy

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ManifestName is the file Package writes at the root of the output directory.
const ManifestName = "deploy-manifest.json"

// RequiredFiles must exist at the root of a deployable directory.
var RequiredFiles = []string{"index.html", "sitemap.xml", "robots.txt"}

// ErrEmptyDir is returned by Verify for a directory with no files.
var ErrEmptyDir = errors.New("output directory is empty")

// Options configures Package.
type Options struct {
	Dir string
	// Target receives a copy of Dir when set.
	Target string
	// Archive is the path of a .tar.gz of Dir written when set.
	Archive string
	// Command is run after packaging; "{dir}" is replaced with Dir.
	Command string
	// DryRun verifies and summarizes without writing or running anything.
	DryRun bool
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

// Summary counts the files of a directory by category.
type Summary struct {
	Files      int            `json:"files"`
	Bytes      int64          `json:"bytes"`
	Categories map[string]int `json:"categories"`
}

// FileEntry is one manifest line.
type FileEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Manifest describes a packaged directory.
type Manifest struct {
	Generated time.Time   `json:"generated"`
	Summary   Summary     `json:"summary"`
	Files     []FileEntry `json:"files"`
}

// Result reports what Package did.
type Result struct {
	Summary  Summary
	Manifest string
	Target   string
	Archive  string
	Command  []string
	Ran      bool
	Duration time.Duration
}

var categories = map[string]string{
	".html": "html", ".htm": "html",
	".xml": "xml",
	".txt": "txt",
	".css": "css",
	".js":  "js", ".mjs": "js",
	".png": "image", ".jpg": "image", ".jpeg": "image", ".gif": "image",
	".webp": "image", ".svg": "image", ".avif": "image", ".ico": "image",
}

// Category classifies a file name by extension.
func Category(name string) string {
	if c, ok := categories[strings.ToLower(filepath.Ext(name))]; ok {
		return c
	}
	return "other"
}

// files lists regular files under dir as slash-separated relative paths, sorted.
func files(dir string, skip ...string) ([]string, error) {
	skipped := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		if s == "" {
			continue
		}
		if abs, err := filepath.Abs(s); err == nil {
			skipped[abs] = struct{}{}
		}
	}
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil {
			if _, ok := skipped[abs]; ok {
				return nil
			}
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(out)
	return out, err
}

// Summarize counts the files under dir by category, leaving out a manifest
// from an earlier run.
func Summarize(dir string) (Summary, error) {
	sum := Summary{Categories: make(map[string]int)}
	names, err := files(dir, filepath.Join(dir, ManifestName))
	if err != nil {
		return sum, fmt.Errorf("walk %s: %w", dir, err)
	}
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			return sum, err
		}
		sum.Files++
		sum.Bytes += info.Size()
		sum.Categories[Category(name)]++
	}
	return sum, nil
}

// Verify checks that dir is non-empty and has every required file.
func Verify(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	names, err := files(dir)
	if err != nil {
		return fmt.Errorf("walk %s: %w", dir, err)
	}
	if len(names) == 0 {
		return ErrEmptyDir
	}
	var missing []string
	for _, req := range RequiredFiles {
		if _, err := os.Stat(filepath.Join(dir, req)); err != nil {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required files: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SplitCommand splits a hand-off command on whitespace and substitutes
// "{dir}". No shell is involved.
func SplitCommand(command, dir string) []string {
	argv := strings.Fields(command)
	for i, a := range argv {
		argv[i] = strings.ReplaceAll(a, "{dir}", dir)
	}
	return argv
}

// Package verifies and packages opts.Dir.
func Package(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Dir == "" {
		return nil, errors.New("deploy: no output directory")
	}
	if err := Verify(opts.Dir); err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(opts.Dir, ManifestName)
	sum, err := Summarize(opts.Dir)
	if err != nil {
		return nil, err
	}
	res := &Result{Summary: sum}
	if opts.Command != "" {
		res.Command = SplitCommand(opts.Command, opts.Dir)
	}
	log.Info("output verified", zap.Int("files", sum.Files), zap.Int64("bytes", sum.Bytes))
	if opts.DryRun {
		res.Duration = time.Since(start)
		return res, nil
	}

	if err := writeManifest(opts.Dir, manifestPath, opts.Archive); err != nil {
		return res, err
	}
	res.Manifest = manifestPath

	if opts.Target != "" {
		if err := copyTree(opts.Dir, opts.Target); err != nil {
			return res, fmt.Errorf("copy to %s: %w", opts.Target, err)
		}
		res.Target = opts.Target
		log.Info("copied output", zap.String("target", opts.Target))
	}
	if opts.Archive != "" {
		if err := writeArchive(opts.Dir, opts.Archive); err != nil {
			return res, fmt.Errorf("archive: %w", err)
		}
		res.Archive = opts.Archive
		log.Info("archive written", zap.String("archive", opts.Archive))
	}
	if len(res.Command) > 0 {
		cmd := exec.CommandContext(ctx, res.Command[0], res.Command[1:]...)
		cmd.Stdout = opts.Stdout
		cmd.Stderr = opts.Stderr
		log.Info("running hand-off command", zap.Strings("argv", res.Command))
		if err := cmd.Run(); err != nil {
			return res, fmt.Errorf("hand-off command %q: %w", res.Command[0], err)
		}
		res.Ran = true
	}
	res.Duration = time.Since(start)
	return res, nil
}

func writeManifest(dir, path, archive string) error {
	names, err := files(dir, path, archive)
	if err != nil {
		return fmt.Errorf("walk %s: %w", dir, err)
	}
	m := Manifest{
		Generated: time.Now().UTC(),
		Summary:   Summary{Categories: make(map[string]int)},
		Files:     make([]FileEntry, 0, len(names)),
	}
	for _, name := range names {
		entry, err := hashFile(dir, name)
		if err != nil {
			return err
		}
		m.Files = append(m.Files, entry)
		m.Summary.Files++
		m.Summary.Bytes += entry.Size
		m.Summary.Categories[Category(name)]++
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func hashFile(dir, name string) (FileEntry, error) {
	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		return FileEntry{}, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return FileEntry{}, fmt.Errorf("hash %s: %w", name, err)
	}
	return FileEntry{Path: name, Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

func within(parent, child string) bool {
	p, err1 := filepath.Abs(parent)
	c, err2 := filepath.Abs(child)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(p, c)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func copyTree(src, dst string) error {
	if within(src, dst) {
		return errors.New("target is inside the output directory")
	}
	names, err := files(src)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := copyFile(filepath.Join(src, filepath.FromSlash(name)), filepath.Join(dst, filepath.FromSlash(name))); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeArchive(dir, archive string) (err error) {
	names, err := files(dir, archive)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(archive), 0o755); err != nil {
		return err
	}
	f, err := os.Create(archive)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, name := range names {
		if err := addToArchive(tw, dir, name); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func addToArchive(tw *tar.Writer, dir, name string) error {
	path := filepath.Join(dir, filepath.FromSlash(name))
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}
