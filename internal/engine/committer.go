package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/intakefill/internal/config"
	"github.com/xkilldash9x/intakefill/internal/dom"
)

// committer writes matched values into live form controls. All writes go
// through the page's native property setters so framework change detection
// (React, Vue, Angular) observes them the same way it observes real typing.
type committer struct {
	page   dom.PagePrimitives
	cfg    config.EngineConfig
	logger *zap.Logger
}

// errNothingToCommit marks a commit that wrote no value to the page. The
// caller must not count the field as filled.
var errNothingToCommit = errors.New("value contains nothing to commit")

// commitText writes a plain text value and fires the full event sequence a
// user-driven edit produces: input, change, blur, focus.
func (c *committer) commitText(ctx context.Context, selector, value string) error {
	if err := c.page.SetValueNative(ctx, selector, value); err != nil {
		return err
	}
	for _, event := range []string{"input", "change", "blur", "focus"} {
		if err := c.page.DispatchEvent(ctx, selector, event); err != nil {
			return err
		}
	}
	return nil
}

// commitSelect picks an option by index and notifies the page. Selects get a
// change and a blur; there is no input event for programmatic selection.
func (c *committer) commitSelect(ctx context.Context, selector string, index int) error {
	if err := c.page.SetSelectedIndex(ctx, selector, index); err != nil {
		return err
	}
	if err := c.page.DispatchEvent(ctx, selector, "change"); err != nil {
		return err
	}
	return c.page.DispatchEvent(ctx, selector, "blur")
}

// commitPhone fills a phone input that may be wrapped by an input mask.
// Masks rewrite the field as digits arrive, so a single bulk write can be
// silently truncated or reformatted beyond recognition. The strategy is:
//
//  1. Focus the field, then try the bulk write (fast path) and give the mask
//     a moment to settle.
//  2. Compare digit counts. Masks may swallow or inject one formatting digit,
//     so an off-by-one read still counts as success. Anything worse means the
//     mask rejected the bulk write.
//  3. On rejection, clear the field and feed digits one at a time on a fixed
//     cadence, letting the mask reformat between keystrokes.
//  4. Poll until the rendered value stops changing, then fire change.
//
// The field is deliberately never blurred here. Masked inputs commonly strip
// or re-validate their value on blur, which would undo the fill.
func (c *committer) commitPhone(ctx context.Context, selector, value string) error {
	digits := digitsOf(value)
	if digits == "" {
		return errNothingToCommit
	}

	if err := c.page.Focus(ctx, selector); err != nil {
		return err
	}
	if err := c.page.DispatchEvent(ctx, selector, "focus"); err != nil {
		return err
	}

	if err := c.page.SetValueNative(ctx, selector, value); err != nil {
		return err
	}
	if err := c.page.DispatchEvent(ctx, selector, "input"); err != nil {
		return err
	}
	if err := sleepCtx(ctx, c.cfg.FastPathSettle); err != nil {
		return err
	}

	got, err := c.page.Value(ctx, selector)
	if err != nil {
		return err
	}
	if len(digitsOf(got))+1 < len(digits) {
		c.logger.Debug("Bulk phone write rejected by input mask, typing digits individually.",
			zap.String("selector", selector),
			zap.Int("wanted_digits", len(digits)),
			zap.Int("got_digits", len(digitsOf(got))))
		if err := c.typeDigits(ctx, selector, digits); err != nil {
			return err
		}
	}

	if err := c.stabilize(ctx, selector); err != nil {
		return err
	}
	// No blur. See the function comment.
	return c.page.DispatchEvent(ctx, selector, "change")
}

// typeDigits clears the field and writes one digit per tick. The limiter
// starts with a full token so the first digit lands immediately.
func (c *committer) typeDigits(ctx context.Context, selector, digits string) error {
	if err := c.page.SetValueNative(ctx, selector, ""); err != nil {
		return err
	}
	if err := c.page.DispatchEvent(ctx, selector, "input"); err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Every(c.cfg.DigitInterval), 1)
	for _, d := range digits {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		// Re-read before each keystroke: the mask may have inserted
		// formatting characters after the previous one.
		current, err := c.page.Value(ctx, selector)
		if err != nil {
			return err
		}
		if err := c.page.SetValueNative(ctx, selector, current+string(d)); err != nil {
			return err
		}
		if err := c.page.DispatchEvent(ctx, selector, "input"); err != nil {
			return err
		}
	}
	return nil
}

// stabilize polls the field until two consecutive reads agree, bounded by
// StabilizeMax. Masks reformat asynchronously, so a fixed sleep either wastes
// time on fast masks or reads too early on slow ones.
func (c *committer) stabilize(ctx context.Context, selector string) error {
	deadline := time.Now().Add(c.cfg.StabilizeMax)
	prev, err := c.page.Value(ctx, selector)
	if err != nil {
		return err
	}
	for time.Now().Before(deadline) {
		if err := sleepCtx(ctx, c.cfg.StabilizePoll); err != nil {
			return err
		}
		cur, err := c.page.Value(ctx, selector)
		if err != nil {
			return err
		}
		if cur == prev {
			return nil
		}
		prev = cur
	}
	c.logger.Debug("Masked value did not stabilize within the window, proceeding anyway.",
		zap.String("selector", selector))
	return nil
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
