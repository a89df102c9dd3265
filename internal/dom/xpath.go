// dom/xpath.go
package dom

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// UniqueXPath generates a robust XPath expression for a node. The nearest
// ancestor carrying an id becomes the anchor, keeping selectors short and
// stable against re-renders above that point.
func UniqueXPath(node *html.Node) string {
	if node == nil {
		return ""
	}

	var segments []string
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		tag := strings.ToLower(n.Data)
		if tag == "" {
			continue
		}

		if id := htmlquery.SelectAttr(n, "id"); id != "" {
			segments = append(segments, fmt.Sprintf(`//*[@id='%s']`, id))
			break
		}

		segments = append(segments, fmt.Sprintf("%s[%d]", tag, siblingOrdinal(n, tag)))
	}

	if len(segments) == 0 {
		return "/"
	}

	// segments were collected leaf-first.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	xpath := strings.Join(segments, "/")
	if !strings.HasPrefix(xpath, "//*[@id=") {
		xpath = "/" + xpath
	}
	return xpath
}

// siblingOrdinal returns the 1-based position of n among preceding siblings
// sharing the same tag, as XPath indices are 1-based.
func siblingOrdinal(n *html.Node, tag string) int {
	ordinal := 1
	for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode && strings.ToLower(prev.Data) == tag {
			ordinal++
		}
	}
	return ordinal
}
