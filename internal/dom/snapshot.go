// dom/snapshot.go
package dom

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Snapshot is a parsed view of the page's DOM at one instant. It is rebuilt on
// every fill pass: the target app re-renders asynchronously, so nothing from a
// previous snapshot may be trusted.
type Snapshot struct {
	root *html.Node
}

// Control is one discovered element plus its derived metadata. The Selector is
// the handle used for all subsequent reads and writes through PagePrimitives.
type Control struct {
	Node      *html.Node
	Selector  string
	Tag       string
	InputType string
	Attrs     map[string]string
	Metadata  string
	Label     string
	Text      string
	Options   []SelectOption
	Disabled  bool
}

// SelectOption holds data for one <option> element.
type SelectOption struct {
	Value    string
	Text     string
	Disabled bool
}

// Parse builds a snapshot from an HTML document stream.
func Parse(r io.Reader) (*Snapshot, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOM snapshot: %w", err)
	}
	return &Snapshot{root: root}, nil
}

// Root exposes the parsed document, mainly for label resolution in matchers.
func (s *Snapshot) Root() *html.Node { return s.root }

const textControlXPath = `//input | //textarea`

// TextFields returns text-capable inputs and textareas. Hidden inputs and
// click-action input types are excluded; radios are reported by Radios.
func (s *Snapshot) TextFields() []Control {
	var controls []Control
	for _, node := range htmlquery.Find(s.root, textControlXPath) {
		c := s.newControl(node)
		if !isTextCapable(c) {
			continue
		}
		controls = append(controls, c)
	}
	return controls
}

// Radios returns native radio inputs plus ARIA-only custom radios.
func (s *Snapshot) Radios() []Control {
	var controls []Control
	for _, node := range htmlquery.Find(s.root, `//input[@type='radio'] | //*[@role='radio']`) {
		controls = append(controls, s.newControl(node))
	}
	return controls
}

// Selects returns discrete-choice controls with their option data.
func (s *Snapshot) Selects() []Control {
	var controls []Control
	for _, node := range htmlquery.Find(s.root, `//select`) {
		c := s.newControl(node)
		c.Options = extractOptions(node)
		controls = append(controls, c)
	}
	return controls
}

// A broad candidate query for click targets; refined filtering happens in Go.
const clickableXPath = `
    //a | //button | //summary |
    //input[@type='button' or @type='submit'] |
    //*[@role='button' or @role='tab' or @role='menuitem'] |
    //*[@onclick] |
    //*[contains(@class,'btn') or contains(@class,'button') or contains(@class,'tab')]
`

// Clickables returns deduplicated candidate click targets for the dynamic
// activator, in document order. The union query yields matches grouped by
// branch, so the matched set is re-walked pre-order to restore the order the
// elements appear on the page.
func (s *Snapshot) Clickables() []Control {
	matched := make(map[*html.Node]bool)
	for _, node := range htmlquery.Find(s.root, clickableXPath) {
		matched[node] = true
	}

	var controls []Control
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matched[n] {
			controls = append(controls, s.newControl(n))
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(s.root)
	return controls
}

func (s *Snapshot) newControl(node *html.Node) Control {
	attrs := make(map[string]string, len(node.Attr))
	for _, a := range node.Attr {
		attrs[a.Key] = a.Val
	}
	_, disabled := attrs["disabled"]
	if attrs["aria-disabled"] == "true" {
		disabled = true
	}
	return Control{
		Node:      node,
		Selector:  UniqueXPath(node),
		Tag:       strings.ToLower(node.Data),
		InputType: strings.ToLower(attrs["type"]),
		Attrs:     attrs,
		Metadata:  Metadata(s.root, node),
		Label:     LabelText(s.root, node),
		Text:      innerText(node),
		Disabled:  disabled,
	}
}

// isTextCapable distinguishes text-entry controls from click-action inputs
// like checkboxes, radios and buttons.
func isTextCapable(c Control) bool {
	switch c.Tag {
	case "textarea":
		return true
	case "input":
		switch c.InputType {
		case "hidden", "submit", "button", "reset", "image", "checkbox", "radio", "file", "range", "color":
			return false
		default:
			// Includes text, email, tel, search, number and unset.
			return true
		}
	default:
		return false
	}
}

// hasAttr reports whether the attribute is present at all, which is how
// boolean HTML attributes like disabled must be read. SelectAttr returns ""
// for both a missing attribute and a bare valueless one.
func hasAttr(node *html.Node, key string) bool {
	for _, a := range node.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// extractOptions parses the children of a <select>, handling <optgroup> and
// disabled states. A missing value attribute falls back to the option text.
func extractOptions(selectNode *html.Node) []SelectOption {
	var options []SelectOption
	for _, node := range htmlquery.Find(selectNode, ".//option") {
		text := innerText(node)
		value := htmlquery.SelectAttr(node, "value")
		if value == "" {
			value = text
		}

		// Presence check: <option disabled> carries no attribute value.
		disabled := hasAttr(node, "disabled")
		if !disabled && node.Parent != nil && node.Parent.Type == html.ElementNode &&
			strings.EqualFold(node.Parent.Data, "optgroup") &&
			hasAttr(node.Parent, "disabled") {
			disabled = true
		}

		options = append(options, SelectOption{Value: value, Text: text, Disabled: disabled})
	}
	return options
}

// HasExternalLink reports whether the subtree rooted at n contains a hyperlink
// to an absolute URL outside the target domain. The dynamic activator uses
// this to refuse click candidates that would navigate away from the page.
func HasExternalLink(n *html.Node, targetDomain string) bool {
	for _, a := range htmlquery.Find(n, "descendant-or-self::a[@href]") {
		href := htmlquery.SelectAttr(a, "href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || !u.IsAbs() {
			continue
		}
		if !SameDomain(u.Hostname(), targetDomain) {
			return true
		}
	}
	return false
}

// SameDomain reports whether host equals the target domain or is one of its
// subdomains. An empty target domain matches nothing.
func SameDomain(host, targetDomain string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	targetDomain = strings.ToLower(strings.TrimSpace(targetDomain))
	if host == "" || targetDomain == "" {
		return false
	}
	return host == targetDomain || strings.HasSuffix(host, "."+targetDomain)
}
