package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestHTMLInline(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"`code`", "<code>code</code>"},
		{"~~gone~~", "<del>gone</del>"},
	}
	for _, tt := range tests {
		got := string(HTML(tt.input))
		if !strings.Contains(got, tt.expected) {
			t.Errorf("HTML(%q) = %q, want it to contain %q", tt.input, got, tt.expected)
		}
	}
}

func TestHTMLHeadings(t *testing.T) {
	tests := []struct {
		input string
		tag   string
	}{
		{"# Heading 1", "<h1"},
		{"## Heading 2", "<h2"},
		{"### Heading 3", "<h3"},
	}
	for _, tt := range tests {
		got := string(HTML(tt.input))
		if !strings.Contains(got, tt.tag) {
			t.Errorf("HTML(%q) = %q, want %s", tt.input, got, tt.tag)
		}
	}
}

func TestHTMLCodeBlockWithLanguage(t *testing.T) {
	got := string(HTML("```go\nfmt.Println(\"hello\")\n```"))
	if !strings.Contains(got, "<pre>") {
		t.Errorf("code block should be wrapped in pre: %q", got)
	}
	if !strings.Contains(got, `class="language-go"`) {
		t.Errorf("code block should keep its language class: %q", got)
	}
}

func TestHTMLTable(t *testing.T) {
	got := string(HTML("| Room | Price |\n|---|---|\n| Double | 90 |\n"))
	for _, want := range []string{"<table>", "<th>Room</th>", "<td>90</td>"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q: %q", want, got)
		}
	}
}

func TestHTMLStripsScripts(t *testing.T) {
	got := string(HTML("hello\n\n<script>alert(1)</script>\n\n<p onclick=\"x()\">there</p>"))
	if strings.Contains(got, "<script") {
		t.Errorf("script tag survived sanitizing: %q", got)
	}
	if strings.Contains(got, "onclick") {
		t.Errorf("event handler survived sanitizing: %q", got)
	}
	if !strings.Contains(got, "hello") {
		t.Errorf("text content was lost: %q", got)
	}
}

func TestHTMLUnsafeLink(t *testing.T) {
	got := string(HTML("[click](javascript:alert(1))"))
	if strings.Contains(got, "javascript:") {
		t.Errorf("javascript href survived sanitizing: %q", got)
	}
}

func TestHTMLExternalLinkOpensNewTab(t *testing.T) {
	got := string(HTML("[Tourism board](https://example.com/visit)"))
	if !strings.Contains(got, `href="https://example.com/visit"`) {
		t.Errorf("link href missing: %q", got)
	}
	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("external link should open in a new tab: %q", got)
	}
}

func TestHTMLImages(t *testing.T) {
	got := string(HTML("![Beach](/img/beach.jpg)\n\n![](/img/pool.jpg \"Pool\")"))
	if !strings.Contains(got, `alt="Beach"`) {
		t.Errorf("first image alt missing: %q", got)
	}
	if !strings.Contains(got, `fetchpriority="high"`) {
		t.Errorf("first image should be high priority: %q", got)
	}
	if !strings.Contains(got, `loading="lazy"`) {
		t.Errorf("second image should load lazily: %q", got)
	}
	if !strings.Contains(got, `alt="Pool"`) {
		t.Errorf("missing alt should fall back to title: %q", got)
	}
}

func TestPlain(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"# Title\n\nSome *text* & more", "Title Some text & more"},
		{"- one\n- two\n", "one two"},
		{"plain   spaced\ntext", "plain spaced text"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Plain(tt.input); got != tt.expected {
			t.Errorf("Plain(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestMarkdownComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown("A **sunny** day").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "<strong>sunny</strong>") {
		t.Errorf("component output = %q", buf.String())
	}
}
