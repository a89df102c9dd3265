// match/radio.go
package match

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/intakefill/api/schemas"
	"github.com/xkilldash9x/intakefill/internal/dom"
)

// RadioGroup names one of the two orthogonal radio groups on the intake form.
type RadioGroup string

const (
	GroupClientType  RadioGroup = "clientType"
	GroupBillingType RadioGroup = "billingType"
)

// Small fixed vocabularies for radio option labels. Each entry maps the
// canonical record value to the words that identify its option.
var clientTypeVocab = map[string][]string{
	schemas.ClientTypeAdult:  {"adult"},
	schemas.ClientTypeMinor:  {"minor", "child", "teen"},
	schemas.ClientTypeCouple: {"couple"},
}

var billingTypeVocab = map[string][]string{
	schemas.BillingTypeSelfPay:   {"self-pay", "self pay", "private pay", "out of pocket"},
	schemas.BillingTypeInsurance: {"insurance"},
}

// RadioMatch describes which group and canonical option a radio's label
// denotes, and whether the record asks for that option to be selected.
type RadioMatch struct {
	Group  RadioGroup
	Option string
	Wanted bool
}

// MatchRadio classifies a radio control by its resolved label text. Labels
// outside both vocabularies report ok=false and are left untouched.
func MatchRadio(label string, record schemas.ClientRecord) (RadioMatch, bool) {
	text := strings.ToLower(label)
	if text == "" {
		return RadioMatch{}, false
	}

	if option, ok := vocabHit(clientTypeVocab, text); ok {
		return RadioMatch{
			Group:  GroupClientType,
			Option: option,
			Wanted: option == record.ClientType,
		}, true
	}
	if option, ok := vocabHit(billingTypeVocab, text); ok {
		return RadioMatch{
			Group:  GroupBillingType,
			Option: option,
			Wanted: option == record.BillingType,
		}, true
	}
	return RadioMatch{}, false
}

func vocabHit(vocab map[string][]string, text string) (string, bool) {
	for option, words := range vocab {
		for _, w := range words {
			if strings.Contains(text, w) {
				return option, true
			}
		}
	}
	return "", false
}

// RadioGroupKey derives the key used to guarantee at most one selection per
// DOM radio group per pass: the radio's name attribute when present, a key
// synthesized from aria-labelledby for ARIA-only custom radios, and finally
// the control's snapshot ordinal.
func RadioGroupKey(c dom.Control, ordinal int) string {
	if name := c.Attrs["name"]; name != "" {
		return "name:" + name
	}
	if ref := c.Attrs["aria-labelledby"]; ref != "" {
		return "aria:" + ref
	}
	return fmt.Sprintf("ordinal:%d", ordinal)
}
