// Package validate runs post-build sanity checks over prerendered output.
package validate

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/eringen/destino/seo"
)

// Options configures a validation run.
type Options struct {
	Dir string
	// SampleSize is the number of HTML files checked. Zero means 10; negative means all.
	SampleSize int
	// MinBytes is the smallest acceptable page. Zero means 1024.
	MinBytes int64
	// Placeholders must not survive in any page.
	Placeholders []string
	// Required lists files that must exist under Dir besides the pages.
	Required []string
}

func (o *Options) setDefaults() {
	if o.SampleSize == 0 {
		o.SampleSize = 10
	}
	if o.MinBytes == 0 {
		o.MinBytes = 1024
	}
	if o.Placeholders == nil {
		o.Placeholders = []string{seo.HeadPlaceholder, seo.BodyPlaceholder}
	}
	if o.Required == nil {
		o.Required = []string{"sitemap.xml", "robots.txt"}
	}
}

// Result holds the findings for one file.
type Result struct {
	Path     string
	Bytes    int64
	Errors   []string
	Warnings []string
}

// OK reports whether the file passed every required check.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Summary is the outcome of Dir.
type Summary struct {
	Dir     string
	Total   int
	Checked []Result
	Missing []string
}

// OK reports whether every sampled file passed and no required file is missing.
func (s *Summary) OK() bool {
	if len(s.Missing) > 0 {
		return false
	}
	for _, r := range s.Checked {
		if !r.OK() {
			return false
		}
	}
	return true
}

// Failed returns the results with errors.
func (s *Summary) Failed() []Result {
	var out []Result
	for _, r := range s.Checked {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Sample picks n files deterministically: index.html first when present,
// then evenly spaced picks over the sorted remainder. n <= 0 or n >= len(files)
// returns every file.
func Sample(files []string, n int) []string {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	var picks, rest []string
	for _, f := range sorted {
		if f == "index.html" {
			picks = append(picks, f)
		} else {
			rest = append(rest, f)
		}
	}
	if n <= 0 || n >= len(sorted) {
		return append(picks, rest...)
	}
	need := n - len(picks)
	if need <= 0 {
		return picks[:n]
	}
	step := float64(len(rest)) / float64(need)
	for i := 0; i < need; i++ {
		picks = append(picks, rest[int(float64(i)*step)])
	}
	return picks
}

// File checks a single page.
func File(path string, opts Options) Result {
	opts.setDefaults()
	res := Result{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	res.Bytes = int64(len(data))
	if res.Bytes < opts.MinBytes {
		res.Errors = append(res.Errors, fmt.Sprintf("file is %d bytes, minimum is %d", res.Bytes, opts.MinBytes))
	}
	for _, p := range opts.Placeholders {
		if p != "" && bytes.Contains(data, []byte(p)) {
			res.Errors = append(res.Errors, fmt.Sprintf("placeholder %s was not replaced", p))
		}
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("parse html: %v", err))
		return res
	}
	f := inspect(doc)
	switch {
	case len(f.titles) == 0:
		res.Errors = append(res.Errors, "missing <title>")
	case len(f.titles) > 1:
		res.Errors = append(res.Errors, fmt.Sprintf("%d <title> elements, want 1", len(f.titles)))
	case strings.TrimSpace(f.titles[0]) == "":
		res.Errors = append(res.Errors, "empty <title>")
	}
	switch {
	case !f.hasDescription:
		res.Errors = append(res.Errors, `missing <meta name="description">`)
	case strings.TrimSpace(f.description) == "":
		res.Errors = append(res.Errors, "empty meta description")
	}
	if !f.hasCanonical {
		res.Warnings = append(res.Warnings, `missing <link rel="canonical">`)
	}
	return res
}

type findings struct {
	titles         []string
	hasDescription bool
	description    string
	hasCanonical   bool
}

func inspect(doc *html.Node) findings {
	var f findings
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				f.titles = append(f.titles, text(n))
			case atom.Meta:
				if strings.EqualFold(attr(n, "name"), "description") {
					f.hasDescription = true
					f.description = attr(n, "content")
				}
			case atom.Link:
				if strings.EqualFold(attr(n, "rel"), "canonical") && attr(n, "href") != "" {
					f.hasCanonical = true
				}
			case atom.Svg:
				// svg <title> elements are tooltips, not the page title
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return f
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// Dir samples the HTML files under opts.Dir, checks each and verifies the
// required companion files exist.
func Dir(opts Options) (*Summary, error) {
	opts.setDefaults()
	var files []string
	err := filepath.WalkDir(opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}
		rel, err := filepath.Rel(opts.Dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", opts.Dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no html files under %s", opts.Dir)
	}

	sum := &Summary{Dir: opts.Dir, Total: len(files)}
	for _, rel := range Sample(files, opts.SampleSize) {
		res := File(filepath.Join(opts.Dir, filepath.FromSlash(rel)), opts)
		res.Path = rel
		sum.Checked = append(sum.Checked, res)
	}
	for _, req := range opts.Required {
		if _, err := os.Stat(filepath.Join(opts.Dir, req)); err != nil {
			sum.Missing = append(sum.Missing, req)
		}
	}
	return sum, nil
}
