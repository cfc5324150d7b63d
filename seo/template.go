package seo

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"
)

const (
	// HeadPlaceholder marks where the metadata fragment is injected.
	HeadPlaceholder = "<!--seo-head-->"
	// BodyPlaceholder marks where rendered application HTML is injected.
	BodyPlaceholder = "<!--app-html-->"
)

// ErrNoHeadPlaceholder is returned by ParseTemplate for a shell without HeadPlaceholder.
var ErrNoHeadPlaceholder = errors.New("shell has no " + HeadPlaceholder + " placeholder")

var (
	reTitle       = regexp.MustCompile(`(?is)[ \t]*<title[^>]*>.*?</title>[ \t]*\n?`)
	reDescription = regexp.MustCompile(`(?is)[ \t]*<meta\s+name=["']description["'][^>]*>[ \t]*\n?`)
	reHTMLOpen    = regexp.MustCompile(`(?is)<html(\s[^>]*)?>`)
	reLangAttr    = regexp.MustCompile(`(?i)\slang\s*=`)
)

// Template is a parsed HTML shell every page is produced from.
type Template struct {
	shell   []byte
	hasBody bool
}

// ParseTemplate validates shell and strips its own <title> and description
// so the injected head fragment is authoritative.
func ParseTemplate(shell []byte) (*Template, error) {
	if !bytes.Contains(shell, []byte(HeadPlaceholder)) {
		return nil, ErrNoHeadPlaceholder
	}
	s := reTitle.ReplaceAll(shell, nil)
	s = reDescription.ReplaceAll(s, nil)
	return &Template{
		shell:   s,
		hasBody: bytes.Contains(s, []byte(BodyPlaceholder)),
	}, nil
}

// HasBody reports whether the shell has a place for rendered application HTML.
func (t *Template) HasBody() bool {
	return t.hasBody
}

// Execute produces a page: the head fragment for m replaces HeadPlaceholder
// and appHTML replaces BodyPlaceholder.
func (t *Template) Execute(m Meta, appHTML string) ([]byte, error) {
	head, err := renderHead(m)
	if err != nil {
		return nil, fmt.Errorf("render head for %s: %w", m.Canonical, err)
	}
	out := bytes.Replace(t.shell, []byte(HeadPlaceholder), []byte(head), 1)
	if t.hasBody {
		out = bytes.Replace(out, []byte(BodyPlaceholder), []byte(appHTML), 1)
	}
	if m.Lang != "" {
		out = setLang(out, m.Lang)
	}
	return out, nil
}

func setLang(page []byte, lang string) []byte {
	loc := reHTMLOpen.FindIndex(page)
	if loc == nil {
		return page
	}
	open := page[loc[0]:loc[1]]
	if reLangAttr.Match(open) {
		return page
	}
	replaced := make([]byte, 0, len(page)+len(lang)+8)
	replaced = append(replaced, page[:loc[0]+len("<html")]...)
	replaced = append(replaced, ` lang="`+html.EscapeString(lang)+`"`...)
	replaced = append(replaced, page[loc[0]+len("<html"):]...)
	return replaced
}
