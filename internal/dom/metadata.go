// dom/metadata.go
package dom

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Metadata gathers every human or machine readable hint attached to a form
// control into one normalized, lower-cased blob. This blob is the sole input
// to semantic matching: the target app's generated ids and class names are
// unstable across releases, so no positional or visual heuristics are used.
func Metadata(doc, field *html.Node) string {
	parts := make([]string, 0, 8)
	appendPart := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	appendPart(htmlquery.SelectAttr(field, "name"))
	appendPart(htmlquery.SelectAttr(field, "id"))
	appendPart(htmlquery.SelectAttr(field, "placeholder"))
	appendPart(htmlquery.SelectAttr(field, "aria-label"))
	appendPart(htmlquery.SelectAttr(field, "data-testid"))
	// Compound class names like "first-name-input" only tokenize for keyword
	// matching once separators become spaces.
	appendPart(normalizeSeparators(htmlquery.SelectAttr(field, "class")))
	appendPart(LabelText(doc, field))

	return strings.ToLower(strings.Join(parts, " "))
}

// LabelText resolves the visible label for a control. Resolution order:
// a <label> whose for attribute equals the control's id, then a label that
// structurally contains the control, then the element referenced by
// aria-labelledby. First hit wins; empty string if none.
func LabelText(doc, field *html.Node) string {
	if id := htmlquery.SelectAttr(field, "id"); id != "" {
		for _, label := range htmlquery.Find(doc, "//label[@for]") {
			if htmlquery.SelectAttr(label, "for") == id {
				if text := innerText(label); text != "" {
					return text
				}
			}
		}
	}

	for n := field.Parent; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "label") {
			if text := innerText(n); text != "" {
				return text
			}
		}
	}

	if ref := htmlquery.SelectAttr(field, "aria-labelledby"); ref != "" {
		var texts []string
		// aria-labelledby may reference several ids, space separated.
		for _, id := range strings.Fields(ref) {
			if target := findByID(doc, id); target != nil {
				if text := innerText(target); text != "" {
					texts = append(texts, text)
				}
			}
		}
		return strings.Join(texts, " ")
	}

	return ""
}

// normalizeSeparators maps hyphens and underscores to spaces.
func normalizeSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return ' '
		}
		return r
	}, s)
}

func innerText(n *html.Node) string {
	return strings.Join(strings.Fields(htmlquery.InnerText(n)), " ")
}

// findByID walks the tree for the element with the given id. A manual walk
// avoids building an XPath string from untrusted attribute values.
func findByID(doc *html.Node, id string) *html.Node {
	for _, n := range htmlquery.Find(doc, "//*[@id]") {
		if htmlquery.SelectAttr(n, "id") == id {
			return n
		}
	}
	return nil
}
