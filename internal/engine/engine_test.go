// internal/engine/engine_test.go
package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/intakefill/api/schemas"
	"github.com/xkilldash9x/intakefill/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -- Fake page --

type pageEvent struct {
	selector string
	kind     string // "set", "event:<name>", "click", "focus", "select"
	detail   string
	at       time.Time
}

// fakePage is a scripted PagePrimitives. It serves snapshots from a queue
// (the last entry repeats), tracks values per selector, and records every
// mutation with a timestamp so tests can assert ordering and cadence.
type fakePage struct {
	mu      sync.Mutex
	url     string
	html    []string
	hidden  map[string]bool
	values  map[string]string
	events  []pageEvent
	clicks  []string
	onClick func(selector string)

	// mask, when set, mediates SetValueNative on maskSel. It receives the
	// current and proposed raw values and returns what the field keeps.
	maskSel string
	mask    func(current, proposed string) string

	// onValue, when set, overrides reads for one selector.
	onValue func(selector string) (string, bool)
}

func newFakePage(url string, html ...string) *fakePage {
	return &fakePage{
		url:    url,
		html:   html,
		hidden: make(map[string]bool),
		values: make(map[string]string),
	}
}

func (p *fakePage) CurrentURL() string { return p.url }

func (p *fakePage) DOMSnapshot(_ context.Context) (io.Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc := p.html[0]
	if len(p.html) > 1 {
		p.html = p.html[1:]
	}
	return strings.NewReader(doc), nil
}

func (p *fakePage) IsVisible(_ context.Context, selector string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.hidden[selector]
}

func (p *fakePage) Focus(_ context.Context, selector string) error {
	p.log(selector, "focus", "")
	return nil
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	p.log(selector, "click", "")
	p.mu.Lock()
	p.clicks = append(p.clicks, selector)
	cb := p.onClick
	p.mu.Unlock()
	if cb != nil {
		cb(selector)
	}
	return nil
}

func (p *fakePage) SetValueNative(_ context.Context, selector, value string) error {
	p.mu.Lock()
	if selector == p.maskSel && p.mask != nil {
		value = p.mask(p.values[selector], value)
	}
	p.values[selector] = value
	p.mu.Unlock()
	p.log(selector, "set", value)
	return nil
}

func (p *fakePage) Value(_ context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.onValue != nil {
		if v, ok := p.onValue(selector); ok {
			return v, nil
		}
	}
	return p.values[selector], nil
}

func (p *fakePage) DispatchEvent(_ context.Context, selector, event string) error {
	p.log(selector, "event:"+event, "")
	return nil
}

func (p *fakePage) SetSelectedIndex(_ context.Context, selector string, index int) error {
	p.mu.Lock()
	p.values[selector] = fmt.Sprintf("index=%d", index)
	p.mu.Unlock()
	p.log(selector, "select", fmt.Sprintf("%d", index))
	return nil
}

func (p *fakePage) log(selector, kind, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pageEvent{selector: selector, kind: kind, detail: detail, at: time.Now()})
}

func (p *fakePage) eventsFor(selector string) []pageEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pageEvent
	for _, e := range p.events {
		if e.selector == selector {
			out = append(out, e)
		}
	}
	return out
}

func (p *fakePage) eventKinds(selector string) []string {
	var kinds []string
	for _, e := range p.eventsFor(selector) {
		kinds = append(kinds, e.kind)
	}
	return kinds
}

// -- Helpers --

func testEngineCfg() config.EngineConfig {
	return config.EngineConfig{
		MaxAttempts:      3,
		RetryInterval:    5 * time.Millisecond,
		ActivationSettle: time.Millisecond,
		FastPathSettle:   time.Millisecond,
		DigitInterval:    20 * time.Millisecond,
		StabilizePoll:    time.Millisecond,
		StabilizeMax:     50 * time.Millisecond,
	}
}

func newTestEngine(cfg config.EngineConfig) *Engine {
	return New(cfg, "clinic.example", zap.NewNop())
}

func fullRecord() schemas.ClientRecord {
	return schemas.ClientRecord{
		ClientType:    "Adult",
		BillingType:   "Self-Pay",
		FirstName:     "Avery",
		LastName:      "Sloan",
		PreferredName: "Ave",
		Email:         "avery@example.com",
		Phone:         "555-123-4567",
		DOBMonth:      "3",
		DOBDay:        "7",
		DOBYear:       "1990",
	}
}

func maskFormat(digits string) string {
	switch {
	case len(digits) == 0:
		return ""
	case len(digits) <= 3:
		return "(" + digits
	case len(digits) <= 6:
		return "(" + digits[:3] + ") " + digits[3:]
	default:
		if len(digits) > 10 {
			digits = digits[:10]
		}
		return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
	}
}

const loadingPage = `<html><body><main id="app"><p>Loading intake form...</p></main></body></html>`

const phoneOnlyForm = `<html><body><form id="intake">
<label for="phone">Phone Number</label>
<input id="phone" name="phone" type="tel">
</form></body></html>`

const intakeForm = `<html><body><form id="intake">
<fieldset>
  <label><input type="radio" name="client_type" id="ct-adult"> Adult</label>
  <label><input type="radio" name="client_type" id="ct-minor"> Minor</label>
</fieldset>
<fieldset>
  <label><input type="radio" name="billing_type" id="bt-self"> Self-Pay</label>
  <label><input type="radio" name="billing_type" id="bt-ins"> Insurance</label>
</fieldset>
<label for="first">First Name</label><input id="first" name="first_name">
<label for="last">Last Name</label><input id="last" name="last_name">
<label for="pref">Preferred Name</label><input id="pref" name="preferred_name">
<input id="email" type="email" name="email" placeholder="Email">
<input id="phone" type="tel" name="phone" placeholder="Phone">
<select id="dob-month" name="dob_month">
  <option value="">Month</option>
  <option value="1">January</option>
  <option value="3">March</option>
  <option value="12">December</option>
</select>
<select id="dob-day" name="dob_day">
  <option value="">Day</option>
  <option value="7">7</option>
  <option value="8">8</option>
</select>
<select id="dob-year" name="dob_year">
  <option value="">Year</option>
  <option value="1989">1989</option>
  <option value="1990">1990</option>
</select>
</form></body></html>`

// -- Origin guard --

func TestRunRefusesForeignOrigin(t *testing.T) {
	page := newFakePage("https://attacker.example/intake", intakeForm)
	eng := newTestEngine(testEngineCfg())

	res := eng.RunWithRetry(context.Background(), page, fullRecord())

	assert.False(t, res.Success)
	assert.Zero(t, res.FieldsFilled)
	assert.Contains(t, res.Message, "outside target domain")
	assert.Empty(t, page.events, "no control may be touched on a foreign origin")
}

func TestRunAcceptsSubdomainOfTarget(t *testing.T) {
	page := newFakePage("https://forms.clinic.example/intake", intakeForm)
	eng := newTestEngine(testEngineCfg())

	res := eng.RunWithRetry(context.Background(), page, fullRecord())
	assert.True(t, res.Success)
}

// -- Readiness gate --

func TestRunWaitsForLateRenderedForm(t *testing.T) {
	cfg := testEngineCfg()
	cfg.MaxAttempts = 5
	page := newFakePage("https://clinic.example/intake", loadingPage, loadingPage, intakeForm)
	eng := newTestEngine(cfg)

	res := eng.RunWithRetry(context.Background(), page, fullRecord())

	require.True(t, res.Success)
	assert.Positive(t, res.FieldsFilled)
}

func TestRunGiveUpAfterBudgetExhausted(t *testing.T) {
	page := newFakePage("https://clinic.example/intake", loadingPage)
	eng := newTestEngine(testEngineCfg())

	res := eng.RunWithRetry(context.Background(), page, fullRecord())

	assert.False(t, res.Success)
	assert.Zero(t, res.FieldsFilled)
	assert.Contains(t, res.Message, "no fillable fields")
	for _, e := range page.events {
		assert.NotContains(t, []string{"set", "click", "select"}, e.kind,
			"exhausting the gate must not mutate the page")
	}
}

// -- Full pass --

func TestRunFillsCompleteIntakeForm(t *testing.T) {
	page := newFakePage("https://clinic.example/intake", intakeForm)
	eng := newTestEngine(testEngineCfg())

	res := eng.RunWithRetry(context.Background(), page, fullRecord())

	require.True(t, res.Success)
	assert.Equal(t, 10, res.FieldsFilled)

	assert.Equal(t, "Avery", page.values[`//*[@id='first']`])
	assert.Equal(t, "Sloan", page.values[`//*[@id='last']`])
	assert.Equal(t, "Ave", page.values[`//*[@id='pref']`])
	assert.Equal(t, "avery@example.com", page.values[`//*[@id='email']`])
	assert.Equal(t, "555-123-4567", page.values[`//*[@id='phone']`])
	assert.Equal(t, "index=2", page.values[`//*[@id='dob-month']`], "March")
	assert.Equal(t, "index=1", page.values[`//*[@id='dob-day']`])
	assert.Equal(t, "index=2", page.values[`//*[@id='dob-year']`])

	assert.Contains(t, page.clicks, `//*[@id='ct-adult']`)
	assert.Contains(t, page.clicks, `//*[@id='bt-self']`)
	assert.NotContains(t, page.clicks, `//*[@id='ct-minor']`)
	assert.NotContains(t, page.clicks, `//*[@id='bt-ins']`)
}

func TestRunPartialFillWhenOptionMissing(t *testing.T) {
	// The day dropdown has no option for the record's value; the other five
	// controls still fill and the miss does not count.
	const form = `<html><body><form id="intake">
<label for="first">First Name</label><input id="first" name="first_name">
<label for="last">Last Name</label><input id="last" name="last_name">
<input id="phone" type="tel" name="phone" placeholder="Phone">
<select id="dob-month" name="dob_month">
  <option value="3">March</option>
</select>
<select id="dob-day" name="dob_day">
  <option value="01">01</option>
  <option value="02">02</option>
  <option value="10">10</option>
</select>
<select id="dob-year" name="dob_year">
  <option value="1990">1990</option>
</select>
</form></body></html>`

	page := newFakePage("https://clinic.example/intake", form)
	eng := newTestEngine(testEngineCfg())

	record := schemas.ClientRecord{
		FirstName: "Ana",
		LastName:  "Diaz",
		Phone:     "(555) 010-2020",
		DOBMonth:  "3",
		DOBDay:    "14",
		DOBYear:   "1990",
	}
	res := eng.RunWithRetry(context.Background(), page, record)

	require.True(t, res.Success)
	assert.Equal(t, 5, res.FieldsFilled)
	assert.Equal(t, "Ana", page.values[`//*[@id='first']`])
	assert.Equal(t, "Diaz", page.values[`//*[@id='last']`])
	assert.Equal(t, "(555) 010-2020", page.values[`//*[@id='phone']`])
	assert.Empty(t, page.values[`//*[@id='dob-day']`])
}

func TestRunSkipsHiddenFields(t *testing.T) {
	page := newFakePage("https://clinic.example/intake", intakeForm)
	page.hidden[`//*[@id='pref']`] = true
	eng := newTestEngine(testEngineCfg())

	res := eng.RunWithRetry(context.Background(), page, fullRecord())

	require.True(t, res.Success)
	assert.Equal(t, 9, res.FieldsFilled)
	assert.Empty(t, page.values[`//*[@id='pref']`])
}

// -- Masked phone protocol --

func TestPhoneFastPathEndsWithChangeAndNoBlur(t *testing.T) {
	phoneSel := `//*[@id='phone']`
	page := newFakePage("https://clinic.example/intake", phoneOnlyForm)
	page.maskSel = phoneSel
	page.mask = func(_, proposed string) string {
		return maskFormat(digitsOf(proposed))
	}
	eng := newTestEngine(testEngineCfg())

	record := schemas.ClientRecord{Phone: "555-123-4567"}
	res := eng.RunWithRetry(context.Background(), page, record)

	require.True(t, res.Success)
	assert.Equal(t, "(555) 123-4567", page.values[phoneSel])

	kinds := page.eventKinds(phoneSel)
	require.NotEmpty(t, kinds)
	assert.Equal(t, "event:change", kinds[len(kinds)-1])
	assert.NotContains(t, kinds, "event:blur", "masked fields must never be blurred")

	sets := 0
	for _, k := range kinds {
		if k == "set" {
			sets++
		}
	}
	assert.Equal(t, 1, sets, "accepted bulk write must not fall back to per-digit typing")
}

func TestPhoneFallsBackToPerDigitTyping(t *testing.T) {
	phoneSel := `//*[@id='phone']`
	page := newFakePage("https://clinic.example/intake", phoneOnlyForm)
	page.maskSel = phoneSel
	// The mask refuses pastes: any write growing the value by more than one
	// digit is dropped, single-digit growth is reformatted.
	page.mask = func(current, proposed string) string {
		if proposed == "" {
			return ""
		}
		if len(digitsOf(proposed)) > len(digitsOf(current))+1 {
			return current
		}
		return maskFormat(digitsOf(proposed))
	}
	eng := newTestEngine(testEngineCfg())

	record := schemas.ClientRecord{Phone: "555-123-4567"}
	res := eng.RunWithRetry(context.Background(), page, record)

	require.True(t, res.Success)
	assert.Equal(t, "(555) 123-4567", page.values[phoneSel])

	kinds := page.eventKinds(phoneSel)
	assert.Equal(t, "event:change", kinds[len(kinds)-1])
	assert.NotContains(t, kinds, "event:blur")

	// Bulk attempt, clear, then one write per digit.
	var sets []pageEvent
	for _, e := range page.eventsFor(phoneSel) {
		if e.kind == "set" {
			sets = append(sets, e)
		}
	}
	require.Len(t, sets, 12)
	digitSets := sets[2:]
	for i, e := range digitSets {
		assert.Len(t, digitsOf(e.detail), i+1, "each keystroke adds exactly one digit")
	}

	// Every keystroke after the first waits out the cadence interval.
	for i := 1; i < len(digitSets); i++ {
		gap := digitSets[i].at.Sub(digitSets[i-1].at)
		assert.GreaterOrEqual(t, gap, 10*time.Millisecond,
			"digit %d arrived after %v, expected paced typing", i, gap)
	}
}

func TestPhoneStabilizeWaitsForMaskToSettle(t *testing.T) {
	phoneSel := `//*[@id='phone']`
	page := newFakePage("https://clinic.example/intake", phoneOnlyForm)
	c := &committer{page: page, cfg: testEngineCfg(), logger: zap.NewNop()}

	// The mask keeps reformatting for the first few reads, then settles.
	reads := 0
	page.onValue = func(selector string) (string, bool) {
		if selector != phoneSel {
			return "", false
		}
		reads++
		if reads < 3 {
			return fmt.Sprintf("(555) 123-45_%d", reads), true
		}
		return "(555) 123-4567", true
	}

	require.NoError(t, c.stabilize(context.Background(), phoneSel))
	assert.GreaterOrEqual(t, reads, 4, "needs two consecutive identical reads to settle")
}

func TestPhoneStabilizeGivesUpAtDeadline(t *testing.T) {
	phoneSel := `//*[@id='phone']`
	page := newFakePage("https://clinic.example/intake", phoneOnlyForm)
	c := &committer{page: page, cfg: testEngineCfg(), logger: zap.NewNop()}

	// Never settles. Stabilize must return cleanly once the window closes.
	reads := 0
	page.onValue = func(string) (string, bool) {
		reads++
		return fmt.Sprintf("jitter-%d", reads), true
	}

	start := time.Now()
	require.NoError(t, c.stabilize(context.Background(), phoneSel))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestPhoneWithoutDigitsIsNotCountedAsFilled(t *testing.T) {
	page := newFakePage("https://clinic.example/intake", phoneOnlyForm)
	eng := newTestEngine(testEngineCfg())

	record := schemas.ClientRecord{Phone: "n/a"}
	res := eng.RunWithRetry(context.Background(), page, record)

	// Nothing was written, so nothing counts as filled.
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.FieldsFilled)
	assert.Empty(t, page.eventKinds(`//*[@id='phone']`))
}

func TestCommitTextFiresFullEventSequence(t *testing.T) {
	page := newFakePage("https://clinic.example/intake", intakeForm)
	c := &committer{page: page, cfg: testEngineCfg(), logger: zap.NewNop()}

	sel := `//*[@id='first']`
	require.NoError(t, c.commitText(context.Background(), sel, "Avery"))

	assert.Equal(t, []string{"set", "event:input", "event:change", "event:blur", "event:focus"},
		page.eventKinds(sel))
}

// -- Dynamic activation --

func TestActivatorOpensContactTab(t *testing.T) {
	const beforeTab = `<html><body><form id="intake">
<div role="tablist">
  <div role="tab" id="tab-basics">Basics</div>
  <div role="tab" id="tab-contact">Contact Info</div>
</div>
<label for="first">First Name</label><input id="first" name="first_name">
</form></body></html>`
	const afterTab = `<html><body><form id="intake">
<label for="first">First Name</label><input id="first" name="first_name">
<input id="email" type="email" name="email">
</form></body></html>`

	page := newFakePage("https://clinic.example/intake", beforeTab)
	page.onClick = func(selector string) {
		if selector == `//*[@id='tab-contact']` {
			page.mu.Lock()
			page.html = []string{afterTab}
			page.mu.Unlock()
		}
	}
	eng := newTestEngine(testEngineCfg())

	record := schemas.ClientRecord{FirstName: "Avery", Email: "avery@example.com"}
	res := eng.RunWithRetry(context.Background(), page, record)

	require.True(t, res.Success)
	assert.Equal(t, 2, res.FieldsFilled)
	assert.Contains(t, page.clicks, `//*[@id='tab-contact']`)
	assert.NotContains(t, page.clicks, `//*[@id='tab-basics']`)
	assert.Equal(t, "avery@example.com", page.values[`//*[@id='email']`])
}

func TestActivatorClicksRevealButtons(t *testing.T) {
	const before = `<html><body><form id="intake">
<label for="first">First Name</label><input id="first" name="first_name">
<button id="add-email" class="btn" type="button">Add Email</button>
</form></body></html>`
	const after = `<html><body><form id="intake">
<label for="first">First Name</label><input id="first" name="first_name">
<input id="email" type="email" name="email">
</form></body></html>`

	page := newFakePage("https://clinic.example/intake", before)
	page.onClick = func(selector string) {
		if selector == `//*[@id='add-email']` {
			page.mu.Lock()
			page.html = []string{after}
			page.mu.Unlock()
		}
	}
	eng := newTestEngine(testEngineCfg())

	record := schemas.ClientRecord{Email: "avery@example.com"}
	res := eng.RunWithRetry(context.Background(), page, record)

	require.True(t, res.Success)
	assert.Contains(t, page.clicks, `//*[@id='add-email']`)
	assert.Equal(t, "avery@example.com", page.values[`//*[@id='email']`])
}

func TestActivatorNeverClicksExternalLinkCandidates(t *testing.T) {
	const page1 = `<html><body><form id="intake">
<div class="tab-nav" id="fake-tab"><a href="https://partners.example.org/contact">Contact Partners</a></div>
<label for="first">First Name</label><input id="first" name="first_name">
</form></body></html>`

	page := newFakePage("https://clinic.example/intake", page1)
	eng := newTestEngine(testEngineCfg())

	record := schemas.ClientRecord{Email: "avery@example.com"}
	eng.RunWithRetry(context.Background(), page, record)

	assert.Empty(t, page.clicks, "candidates wrapping off-domain links are navigation, not tabs")
}

func TestActivatorIdleWithoutContactData(t *testing.T) {
	page := newFakePage("https://clinic.example/intake", intakeForm)
	eng := newTestEngine(testEngineCfg())

	record := schemas.ClientRecord{FirstName: "Avery"}
	res := eng.RunWithRetry(context.Background(), page, record)

	require.True(t, res.Success)
	assert.Equal(t, 1, res.FieldsFilled)
	assert.Empty(t, page.clicks, "no email or phone in the record means no activation clicks")
}
