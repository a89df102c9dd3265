package engine

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/intakefill/api/schemas"
	"github.com/xkilldash9x/intakefill/internal/dom"
)

var rePhoneMeta = regexp.MustCompile(`\b(?:phone|mobile|cell|tel)\b`)

// activateDynamicFields surfaces contact inputs that intake forms hide behind
// tabs or "add email" style buttons. It is best effort: the fill pass that
// follows simply works with whatever ends up visible.
func (e *Engine) activateDynamicFields(ctx context.Context, page dom.PagePrimitives, record schemas.ClientRecord) {
	wantEmail := record.Email != ""
	wantPhone := record.Phone != ""
	if !wantEmail && !wantPhone {
		return
	}

	snap, err := snapshotPage(ctx, page)
	if err != nil {
		e.logger.Debug("Could not snapshot page for field activation.", zap.Error(err))
		return
	}

	emailMissing := wantEmail && !e.fieldVisible(ctx, page, snap, isEmailField)
	phoneMissing := wantPhone && !e.fieldVisible(ctx, page, snap, isPhoneField)
	if !emailMissing && !phoneMissing {
		return
	}

	if e.openContactTab(ctx, page, snap) {
		if sleepCtx(ctx, e.cfg.ActivationSettle) != nil {
			return
		}
		if fresh, err := snapshotPage(ctx, page); err == nil {
			snap = fresh
		}
	}

	if wantEmail && !e.fieldVisible(ctx, page, snap, isEmailField) {
		if e.clickReveal(ctx, page, snap, "email", "e-mail") {
			if sleepCtx(ctx, e.cfg.ActivationSettle) != nil {
				return
			}
			if fresh, err := snapshotPage(ctx, page); err == nil {
				snap = fresh
			}
		}
	}
	if wantPhone && !e.fieldVisible(ctx, page, snap, isPhoneField) {
		if e.clickReveal(ctx, page, snap, "phone", "mobile", "cell") {
			_ = sleepCtx(ctx, e.cfg.ActivationSettle)
		}
	}
}

func (e *Engine) fieldVisible(ctx context.Context, page dom.PagePrimitives, snap *dom.Snapshot, pred func(dom.Control) bool) bool {
	for _, c := range snap.TextFields() {
		if c.Disabled || !pred(c) {
			continue
		}
		if page.IsVisible(ctx, c.Selector) {
			return true
		}
	}
	return false
}

// openContactTab clicks the tab most likely to hold contact fields. Proper
// tabs (role="tab") win over elements that merely look tab-like by class.
// Candidates wrapping a link off the target domain are navigation, not tabs,
// and are never clicked.
func (e *Engine) openContactTab(ctx context.Context, page dom.PagePrimitives, snap *dom.Snapshot) bool {
	clickables := snap.Clickables()
	for _, pass := range []func(dom.Control) bool{
		func(c dom.Control) bool { return c.Attrs["role"] == "tab" },
		func(c dom.Control) bool { return strings.Contains(strings.ToLower(c.Attrs["class"]), "tab") },
	} {
		for _, c := range clickables {
			if !pass(c) || !strings.Contains(normText(c.Text), "contact") {
				continue
			}
			if dom.HasExternalLink(c.Node, e.targetDomain) {
				e.logger.Debug("Skipping contact tab candidate wrapping an external link.",
					zap.String("selector", c.Selector))
				continue
			}
			if !page.IsVisible(ctx, c.Selector) {
				continue
			}
			if err := page.Click(ctx, c.Selector); err != nil {
				e.logger.Debug("Contact tab click failed.", zap.String("selector", c.Selector), zap.Error(err))
				continue
			}
			return true
		}
	}
	return false
}

// clickReveal looks for an "add email" / "+ phone" style button and clicks it.
func (e *Engine) clickReveal(ctx context.Context, page dom.PagePrimitives, snap *dom.Snapshot, keywords ...string) bool {
	for _, c := range snap.Clickables() {
		text := normText(c.Text)
		if text == "" || !revealText(text, keywords) {
			continue
		}
		if dom.HasExternalLink(c.Node, e.targetDomain) {
			continue
		}
		if !page.IsVisible(ctx, c.Selector) {
			continue
		}
		if err := page.Click(ctx, c.Selector); err != nil {
			e.logger.Debug("Reveal button click failed.", zap.String("selector", c.Selector), zap.Error(err))
			continue
		}
		return true
	}
	return false
}

func revealText(text string, keywords []string) bool {
	if !strings.HasPrefix(text, "add ") && !strings.HasPrefix(text, "+ ") && !strings.HasPrefix(text, "+") {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func isEmailField(c dom.Control) bool {
	return c.InputType == "email" || strings.Contains(c.Metadata, "email")
}

func isPhoneField(c dom.Control) bool {
	return c.InputType == "tel" || rePhoneMeta.MatchString(c.Metadata)
}

func normText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
