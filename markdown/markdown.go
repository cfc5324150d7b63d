// Package markdown renders listing descriptions, blog posts and content
// blocks from Markdown to sanitized HTML, as bytes or as a templ component.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/pkg/errors"

	bm "github.com/microcosm-cc/bluemonday"
	bf "github.com/russross/blackfriday"
)

const extensions = bf.EXTENSION_NO_INTRA_EMPHASIS |
	bf.EXTENSION_TABLES |
	bf.EXTENSION_FENCED_CODE |
	bf.EXTENSION_AUTOLINK |
	bf.EXTENSION_STRIKETHROUGH |
	bf.EXTENSION_SPACE_HEADERS |
	bf.EXTENSION_HEADER_IDS

var (
	ugc    = newPolicy()
	strict = bm.StrictPolicy()
)

func newPolicy() *bm.Policy {
	p := bm.UGCPolicy()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowAttrs("loading", "decoding", "fetchpriority").OnElements("img")
	return p
}

// imageRenderer fills a missing alt from the title (and the reverse) and
// marks every image after the first as lazily loaded.
type imageRenderer struct {
	bf.Renderer
	count int
}

func (r *imageRenderer) Image(out *bytes.Buffer, link []byte, title []byte, alt []byte) {
	if len(alt) == 0 {
		alt = title
	}
	if len(title) == 0 {
		title = alt
	}
	r.count++
	out.WriteString(`<img src="`)
	out.WriteString(html.EscapeString(string(link)))
	out.WriteString(`" alt="`)
	out.WriteString(html.EscapeString(string(alt)))
	if len(title) > 0 {
		out.WriteString(`" title="`)
		out.WriteString(html.EscapeString(string(title)))
	}
	if r.count == 1 {
		out.WriteString(`" fetchpriority="high`)
	} else {
		out.WriteString(`" loading="lazy`)
	}
	out.WriteString(`" decoding="async">`)
}

func render(md string) []byte {
	r := &imageRenderer{Renderer: bf.HtmlRenderer(0, "", "")}
	return bf.Markdown([]byte(md), r, extensions)
}

// HTML renders md and sanitizes the result for untrusted input.
func HTML(md string) []byte {
	return ugc.SanitizeBytes(render(md))
}

// Markdown returns a templ.Component that renders md as HTML.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := w.Write(HTML(content)); err != nil {
			return errors.Wrap(err, "write markdown")
		}
		return nil
	})
}

// Plain renders md and strips every tag, returning the visible text with
// whitespace collapsed to single spaces.
func Plain(md string) string {
	text := html.UnescapeString(strict.Sanitize(string(render(md))))
	return strings.Join(strings.Fields(text), " ")
}
