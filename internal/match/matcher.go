// match/matcher.go
package match

import (
	"strings"

	"github.com/xkilldash9x/intakefill/api/schemas"
)

// Result is a successful classification of one form control.
type Result struct {
	Type  FieldType
	Value string
}

// Matcher evaluates an ordered, immutable rule list against metadata blobs.
// It holds no mutable state and is safe for reuse across passes.
type Matcher struct {
	rules []Rule
}

// NewMatcher builds a matcher over the default rule table.
func NewMatcher() *Matcher {
	return &Matcher{rules: defaultRules}
}

// NewMatcherWithRules builds a matcher over a caller-supplied table. Rules are
// evaluated in the given order; the slice is not copied and must not be
// mutated afterwards.
func NewMatcherWithRules(rules []Rule) *Matcher {
	return &Matcher{rules: rules}
}

// Match classifies a metadata blob and selects the record value to write.
// The first rule that both fires on the blob and yields a non-empty value
// wins; a field matches at most one type per pass. A miss is not an error:
// unmatched fields are simply left untouched.
func (m *Matcher) Match(blob string, record schemas.ClientRecord) (Result, bool) {
	for _, rule := range m.rules {
		if !ruleFires(rule, blob) {
			continue
		}
		value := rule.Value(record)
		if value == "" {
			// The record has nothing for this type; later, less specific
			// rules may still supply a value.
			continue
		}
		return Result{Type: rule.Type, Value: value}, true
	}
	return Result{}, false
}

func ruleFires(rule Rule, blob string) bool {
	for _, set := range rule.KeywordSets {
		if keywordSetMatches(set, blob) {
			return true
		}
	}
	for _, pattern := range rule.Patterns {
		if pattern.MatchString(blob) {
			return true
		}
	}
	return false
}

// keywordSetMatches is conjunctive: every keyword in the set must be a
// substring of the blob.
func keywordSetMatches(set []string, blob string) bool {
	for _, keyword := range set {
		if !strings.Contains(blob, keyword) {
			return false
		}
	}
	return len(set) > 0
}
