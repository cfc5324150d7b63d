package prerender

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DefaultRootID is the id of the element the application mounts into.
const DefaultRootID = "root"

// ErrNoAppRoot is returned when the rendered DOM has no application root element.
var ErrNoAppRoot = errors.New("application root element not found")

// ExtractApp returns the serialized children of the element with id rootID.
func ExtractApp(dom, rootID string) (string, error) {
	if rootID == "" {
		rootID = DefaultRootID
	}
	doc, err := html.Parse(strings.NewReader(dom))
	if err != nil {
		return "", fmt.Errorf("parse dom: %w", err)
	}
	root := findByID(doc, rootID)
	if root == nil {
		return "", fmt.Errorf("#%s: %w", rootID, ErrNoAppRoot)
	}
	var b strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("serialize app: %w", err)
		}
	}
	return b.String(), nil
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
