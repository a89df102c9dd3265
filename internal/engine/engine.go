package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/xkilldash9x/intakefill/api/schemas"
	"github.com/xkilldash9x/intakefill/internal/config"
	"github.com/xkilldash9x/intakefill/internal/dom"
	"github.com/xkilldash9x/intakefill/internal/match"
)

// Engine runs the autofill pipeline against one page: wait for the form,
// surface hidden fields, then walk every control and commit matched values.
type Engine struct {
	cfg          config.EngineConfig
	targetDomain string
	logger       *zap.Logger
	matcher      *match.Matcher
}

// New creates an Engine bound to a target domain. Pages on any other domain
// are refused before a single control is touched.
func New(cfg config.EngineConfig, targetDomain string, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:          cfg,
		targetDomain: targetDomain,
		logger:       logger.Named("engine"),
		matcher:      match.NewMatcher(),
	}
}

// RunWithRetry is the entry point. SPAs render the form asynchronously, so
// the pipeline polls until at least one visible, enabled text field exists
// before committing anything, up to MaxAttempts spaced by RetryInterval.
// Exhausting the budget is a clean failure, never an error.
func (e *Engine) RunWithRetry(ctx context.Context, page dom.PagePrimitives, record schemas.ClientRecord) schemas.FillResult {
	if err := e.checkOrigin(page); err != nil {
		e.logger.Warn("Refusing to fill page.", zap.Error(err))
		return schemas.Failure(err.Error())
	}

	record = record.Normalize()

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		snap, err := snapshotPage(ctx, page)
		if err == nil && e.formReady(ctx, page, snap) {
			e.logger.Debug("Form ready.", zap.Int("attempt", attempt))
			return e.fillOnce(ctx, page, record)
		}
		if err != nil {
			e.logger.Debug("Snapshot failed while waiting for form.", zap.Int("attempt", attempt), zap.Error(err))
		}
		if attempt < e.cfg.MaxAttempts {
			if sleepCtx(ctx, e.cfg.RetryInterval) != nil {
				break
			}
		}
	}
	e.logger.Warn("No fillable fields appeared.",
		zap.Int("attempts", e.cfg.MaxAttempts),
		zap.Duration("interval", e.cfg.RetryInterval))
	return schemas.Failure(fmt.Sprintf("no fillable fields found after %d attempts", e.cfg.MaxAttempts))
}

func (e *Engine) checkOrigin(page dom.PagePrimitives) error {
	raw := page.CurrentURL()
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("cannot determine page origin from %q", raw)
	}
	if !dom.SameDomain(u.Hostname(), e.targetDomain) {
		return fmt.Errorf("page host %q is outside target domain %q", u.Hostname(), e.targetDomain)
	}
	return nil
}

// formReady reports whether any visible, enabled text-capable input exists.
func (e *Engine) formReady(ctx context.Context, page dom.PagePrimitives, snap *dom.Snapshot) bool {
	for _, c := range snap.TextFields() {
		if !c.Disabled && page.IsVisible(ctx, c.Selector) {
			return true
		}
	}
	return false
}

// fillOnce runs one complete pass. Every field commit is fault isolated: a
// control that errors is logged and skipped so one broken widget cannot sink
// the rest of the form.
func (e *Engine) fillOnce(ctx context.Context, page dom.PagePrimitives, record schemas.ClientRecord) schemas.FillResult {
	e.activateDynamicFields(ctx, page, record)

	snap, err := snapshotPage(ctx, page)
	if err != nil {
		e.logger.Error("Snapshot failed after field activation.", zap.Error(err))
		return schemas.Failure("could not read page content")
	}

	c := &committer{page: page, cfg: e.cfg, logger: e.logger}
	filled := 0
	filled += e.fillRadios(ctx, page, snap, record)
	filled += e.fillTextFields(ctx, page, snap, record, c)
	filled += e.fillSelects(ctx, page, snap, record, c)

	e.logger.Info("Fill pass complete.", zap.Int("fields_filled", filled))
	return schemas.NewFillResult(filled, fmt.Sprintf("filled %d fields", filled))
}

// fillRadios selects at most one option per radio group. Groups are keyed by
// name attribute, falling back to aria-labelledby and finally document order,
// and a semantic group (client type, billing type) is also only ever clicked
// once even when the page splits it across several DOM groups.
func (e *Engine) fillRadios(ctx context.Context, page dom.PagePrimitives, snap *dom.Snapshot, record schemas.ClientRecord) int {
	groupDone := make(map[string]bool)
	semanticDone := make(map[match.RadioGroup]bool)
	filled := 0

	for ordinal, c := range snap.Radios() {
		if c.Disabled {
			continue
		}
		label := c.Label
		if label == "" {
			label = c.Text
		}
		m, ok := match.MatchRadio(label, record)
		if !ok || !m.Wanted {
			continue
		}
		key := match.RadioGroupKey(c, ordinal)
		if groupDone[key] || semanticDone[m.Group] {
			continue
		}
		if !page.IsVisible(ctx, c.Selector) {
			continue
		}
		if err := page.Click(ctx, c.Selector); err != nil {
			e.logger.Warn("Radio click failed.", zap.String("selector", c.Selector), zap.Error(err))
			continue
		}
		groupDone[key] = true
		semanticDone[m.Group] = true
		filled++
	}
	return filled
}

func (e *Engine) fillTextFields(ctx context.Context, page dom.PagePrimitives, snap *dom.Snapshot, record schemas.ClientRecord, c *committer) int {
	filled := 0
	for _, field := range snap.TextFields() {
		if field.Disabled || !page.IsVisible(ctx, field.Selector) {
			continue
		}
		res, ok := e.matcher.Match(field.Metadata, record)
		if !ok {
			continue
		}
		var err error
		if res.Type == match.TypePhone {
			err = c.commitPhone(ctx, field.Selector, res.Value)
		} else {
			err = c.commitText(ctx, field.Selector, res.Value)
		}
		if errors.Is(err, errNothingToCommit) {
			e.logger.Debug("Skipped field with no committable value.",
				zap.String("selector", field.Selector),
				zap.String("field_type", string(res.Type)))
			continue
		}
		if err != nil {
			e.logger.Warn("Field commit failed.",
				zap.String("selector", field.Selector),
				zap.String("field_type", string(res.Type)),
				zap.Error(err))
			continue
		}
		filled++
	}
	return filled
}

func (e *Engine) fillSelects(ctx context.Context, page dom.PagePrimitives, snap *dom.Snapshot, record schemas.ClientRecord, c *committer) int {
	filled := 0
	for _, sel := range snap.Selects() {
		if sel.Disabled || !page.IsVisible(ctx, sel.Selector) {
			continue
		}
		res, ok := match.MatchDropdown(sel.Metadata, record)
		if !ok {
			continue
		}
		idx, found := match.FindOption(sel.Options, res.Value)
		if !found {
			e.logger.Debug("No option matched dropdown value.",
				zap.String("selector", sel.Selector),
				zap.String("value", res.Value))
			continue
		}
		if err := c.commitSelect(ctx, sel.Selector, idx); err != nil {
			e.logger.Warn("Select commit failed.", zap.String("selector", sel.Selector), zap.Error(err))
			continue
		}
		filled++
	}
	return filled
}

func snapshotPage(ctx context.Context, page dom.PagePrimitives) (*dom.Snapshot, error) {
	r, err := page.DOMSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return dom.Parse(r)
}
