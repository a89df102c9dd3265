// dom/port.go
package dom

import (
	"context"
	"io"
)

// PagePrimitives is the minimal interface the fill engine needs to control the
// underlying page. The browser session implementation provides these over CDP;
// tests provide a scripted fake. Selectors are expected to be XPath.
type PagePrimitives interface {
	// CurrentURL returns the URL of the current page state.
	CurrentURL() string
	// DOMSnapshot fetches the current HTML document for parsing.
	DOMSnapshot(ctx context.Context) (io.Reader, error)
	// IsVisible reports whether the element matching the selector is
	// perceivable: rendered box with positive dimensions and computed style
	// that is not display:none, visibility:hidden or zero opacity.
	IsVisible(ctx context.Context, selector string) bool
	// Focus moves input focus to the element without dispatching synthetic
	// events.
	Focus(ctx context.Context, selector string) error
	// Click performs a user-like click on the element.
	Click(ctx context.Context, selector string) error
	// SetValueNative writes a value through the element prototype's value
	// setter, bypassing any instance-level interception by the page's
	// framework. No events are dispatched.
	SetValueNative(ctx context.Context, selector, value string) error
	// Value reads the element's current value property.
	Value(ctx context.Context, selector string) (string, error)
	// DispatchEvent fires a synthetic bubbling event ("input", "change",
	// "blur", "focus") on the element.
	DispatchEvent(ctx context.Context, selector, event string) error
	// SetSelectedIndex sets a <select> element's selectedIndex. No events are
	// dispatched; the committer sequences those itself.
	SetSelectedIndex(ctx context.Context, selector string, index int) error
}
