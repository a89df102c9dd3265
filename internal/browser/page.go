// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/intakefill/internal/config"
	"github.com/xkilldash9x/intakefill/internal/dom"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const cdpOpTimeout = 10 * time.Second

// Ensure the CDP page satisfies the engine's port.
var _ dom.PagePrimitives = (*Page)(nil)

// Page is one browser tab, driven over CDP. It implements dom.PagePrimitives
// by addressing elements with the XPath selectors the snapshot layer emits
// and resolving them inside the page via document.evaluate.
type Page struct {
	id     string
	cfg    *config.Config
	logger *zap.Logger

	allocatorCtx context.Context
	sessionCtx   context.Context
	sessionStop  context.CancelFunc
	onClose      func()

	mu       sync.Mutex
	isClosed bool
	lastURL  string
}

func newPage(allocCtx context.Context, cfg *config.Config, logger *zap.Logger) *Page {
	id := uuid.New().String()
	return &Page{
		id:           id,
		cfg:          cfg,
		logger:       logger.With(zap.String("page_id", id[:8])),
		allocatorCtx: allocCtx,
	}
}

func (p *Page) init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessionCtx != nil {
		return fmt.Errorf("page already initialized")
	}
	sessionCtx, cancel := chromedp.NewContext(p.allocatorCtx)
	p.sessionCtx = sessionCtx
	p.sessionStop = cancel

	probeCtx := sessionCtx
	if deadline, ok := ctx.Deadline(); ok {
		var cancelProbe context.CancelFunc
		probeCtx, cancelProbe = context.WithDeadline(sessionCtx, deadline)
		defer cancelProbe()
	}
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		p.sessionCtx = nil
		p.sessionStop = nil
		return err
	}
	p.logger.Debug("Page opened.")
	return nil
}

// ID returns the unique identifier for this page.
func (p *Page) ID() string { return p.id }

// Navigate loads a URL and waits for the document body to exist.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating.", zap.String("url", url))
	runCtx, cancel := p.opContext(ctx, p.cfg.Browser.NavigationTimeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	p.mu.Lock()
	p.lastURL = url
	p.mu.Unlock()
	return nil
}

// CurrentURL reports the page's location. It asks the browser, falling back
// to the last navigated URL if the tab does not answer in time.
func (p *Page) CurrentURL() string {
	runCtx, cancel := p.opContext(context.Background(), 2*time.Second)
	defer cancel()

	var loc string
	if err := chromedp.Run(runCtx, chromedp.Location(&loc)); err == nil && loc != "" {
		return loc
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastURL
}

// DOMSnapshot serializes the live document, shadow roots excluded.
func (p *Page) DOMSnapshot(ctx context.Context) (io.Reader, error) {
	runCtx, cancel := p.opContext(ctx, cdpOpTimeout)
	defer cancel()

	var content string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &content)); err != nil {
		return nil, fmt.Errorf("failed to capture DOM snapshot: %w", err)
	}
	return strings.NewReader(content), nil
}

// IsVisible applies the rendered-visibility oracle: the element must exist,
// have a non-empty layout box, and not be hidden by computed style.
func (p *Page) IsVisible(ctx context.Context, selector string) bool {
	script := nodeScript(selector, `
		const style = window.getComputedStyle(node);
		if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') {
			return false;
		}
		const rect = node.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	`, "false")

	var visible bool
	if err := p.eval(ctx, script, &visible); err != nil {
		p.logger.Debug("Visibility check failed.", zap.String("selector", selector), zap.Error(err))
		return false
	}
	return visible
}

func (p *Page) Focus(ctx context.Context, selector string) error {
	return p.evalOK(ctx, selector, nodeScript(selector, `node.focus(); return true;`, "false"))
}

func (p *Page) Click(ctx context.Context, selector string) error {
	return p.evalOK(ctx, selector, nodeScript(selector, `node.click(); return true;`, "false"))
}

// SetValueNative writes through the prototype's value setter. Frameworks like
// React replace the instance setter to observe edits; going through the
// prototype descriptor makes the write look like user input to them.
func (p *Page) SetValueNative(ctx context.Context, selector, value string) error {
	body := fmt.Sprintf(`
		const proto = Object.getPrototypeOf(node);
		const desc = Object.getOwnPropertyDescriptor(proto, 'value');
		if (desc && desc.set) {
			desc.set.call(node, %s);
		} else {
			node.value = %s;
		}
		return true;
	`, jsString(value), jsString(value))
	return p.evalOK(ctx, selector, nodeScript(selector, body, "false"))
}

func (p *Page) Value(ctx context.Context, selector string) (string, error) {
	var value string
	err := p.eval(ctx, nodeScript(selector, `return String(node.value ?? '');`, `''`), &value)
	return value, err
}

func (p *Page) DispatchEvent(ctx context.Context, selector, event string) error {
	body := fmt.Sprintf(
		`node.dispatchEvent(new Event(%s, {bubbles: true, cancelable: true})); return true;`,
		jsString(event))
	return p.evalOK(ctx, selector, nodeScript(selector, body, "false"))
}

func (p *Page) SetSelectedIndex(ctx context.Context, selector string, index int) error {
	body := fmt.Sprintf(`node.selectedIndex = %d; return true;`, index)
	return p.evalOK(ctx, selector, nodeScript(selector, body, "false"))
}

// Close tears the tab down and waits briefly for CDP to confirm.
func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return nil
	}
	p.isClosed = true
	stop := p.sessionStop
	sessionCtx := p.sessionCtx
	onClose := p.onClose
	p.mu.Unlock()

	if stop != nil {
		stop()
	}
	if onClose != nil {
		defer onClose()
	}
	if sessionCtx == nil {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	select {
	case <-sessionCtx.Done():
		p.logger.Debug("Page closed gracefully.")
	case <-waitCtx.Done():
		p.logger.Warn("Deadline exceeded waiting for page to close.", zap.Error(waitCtx.Err()))
	}
	return nil
}

// opContext derives a CDP run context bounded by both the caller's deadline
// and a hard per-operation timeout.
func (p *Page) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	p.mu.Lock()
	sessionCtx := p.sessionCtx
	p.mu.Unlock()
	if timeout <= 0 {
		timeout = cdpOpTimeout
	}
	runCtx, cancelRun := context.WithTimeout(sessionCtx, timeout)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		return runCtx, func() { cancelDeadline(); cancelRun() }
	}
	return runCtx, cancelRun
}

// evalOK runs a side-effect script whose wrapper returns false when the
// selector resolved to nothing.
func (p *Page) evalOK(ctx context.Context, selector, script string) error {
	var ok bool
	if err := p.eval(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matched selector %q", selector)
	}
	return nil
}

// eval runs an IIFE in the page and unmarshals its return value, if any.
func (p *Page) eval(ctx context.Context, script string, out interface{}) error {
	runCtx, cancel := p.opContext(ctx, cdpOpTimeout)
	defer cancel()

	withValue := func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithReturnByValue(true).WithSilent(true)
	}
	if out == nil {
		var discard interface{}
		return chromedp.Run(runCtx, chromedp.Evaluate(script, &discard, withValue))
	}
	return chromedp.Run(runCtx, chromedp.Evaluate(script, out, withValue))
}

// nodeScript wraps body in an IIFE that resolves an XPath selector to a node.
// A selector that matches nothing evaluates to missing instead of throwing.
func nodeScript(selector, body, missing string) string {
	return fmt.Sprintf(`(() => {
	const node = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!node) { return %s; }
	%s
})()`, jsString(selector), missing, body)
}

// jsString encodes an arbitrary Go string as a JS string literal.
func jsString(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(encoded)
}
