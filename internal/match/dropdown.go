// match/dropdown.go
package match

import (
	"strconv"
	"strings"

	"github.com/xkilldash9x/intakefill/api/schemas"
	"github.com/xkilldash9x/intakefill/internal/dom"
)

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// ConvertMonth maps numeric month input, zero-padded or bare, to the full
// month name the target app's month control expects. Out-of-range or
// non-numeric input passes through unchanged, so month names already in the
// record survive as-is.
func ConvertMonth(s string) string {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 12 {
		return s
	}
	return monthNames[n-1]
}

// MatchDropdown classifies a discrete-choice control. Detection is limited to
// word-boundary month/day/year so that "birthday" and "monthly" never fire.
// The month value is converted to a name before option search.
func MatchDropdown(blob string, record schemas.ClientRecord) (Result, bool) {
	switch {
	case reMonth.MatchString(blob):
		if record.DOBMonth == "" {
			return Result{}, false
		}
		return Result{Type: TypeDOBMonth, Value: ConvertMonth(record.DOBMonth)}, true
	case reDay.MatchString(blob):
		if record.DOBDay == "" {
			return Result{}, false
		}
		return Result{Type: TypeDOBDay, Value: record.DOBDay}, true
	case reYear.MatchString(blob):
		if record.DOBYear == "" {
			return Result{}, false
		}
		return Result{Type: TypeDOBYear, Value: record.DOBYear}, true
	}
	return Result{}, false
}

// FindOption locates the option matching a target value through an ordered
// cascade: exact value equality, case-insensitive exact text equality,
// case-insensitive substring in either direction, then numeric equality for
// purely numeric targets. The first strategy that yields a hit short-circuits
// the rest. Disabled options are never chosen.
func FindOption(options []dom.SelectOption, target string) (int, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return 0, false
	}
	lowerTarget := strings.ToLower(target)

	type strategy func(dom.SelectOption) bool
	strategies := []strategy{
		func(o dom.SelectOption) bool { return o.Value == target },
		func(o dom.SelectOption) bool { return strings.EqualFold(o.Text, target) },
		func(o dom.SelectOption) bool {
			text := strings.ToLower(o.Text)
			if text == "" {
				return false
			}
			return strings.Contains(text, lowerTarget) || strings.Contains(lowerTarget, text)
		},
		numericEquality(target),
	}

	for _, match := range strategies {
		if match == nil {
			continue
		}
		for i, opt := range options {
			if opt.Disabled {
				continue
			}
			if match(opt) {
				return i, true
			}
		}
	}
	return 0, false
}

// numericEquality builds the final cascade strategy, or nil when the target is
// not purely numeric.
func numericEquality(target string) func(dom.SelectOption) bool {
	want, err := strconv.Atoi(target)
	if err != nil {
		return nil
	}
	return func(o dom.SelectOption) bool {
		if v, err := strconv.Atoi(strings.TrimSpace(o.Value)); err == nil && v == want {
			return true
		}
		v, err := strconv.Atoi(strings.TrimSpace(o.Text))
		return err == nil && v == want
	}
}
