// match/rules.go
package match

import (
	"regexp"

	"github.com/xkilldash9x/intakefill/api/schemas"
)

// FieldType identifies which ClientRecord field a form control should receive.
type FieldType string

const (
	TypeEmail         FieldType = "email"
	TypePhone         FieldType = "phone"
	TypePreferredName FieldType = "preferredName"
	TypeFirstName     FieldType = "firstName"
	TypeLastName      FieldType = "lastName"
	TypeFullName      FieldType = "fullName"
	TypeDOBMonth      FieldType = "dobMonth"
	TypeDOBDay        FieldType = "dobDay"
	TypeDOBYear       FieldType = "dobYear"
)

// Rule maps metadata-blob evidence to one field type. A keyword set matches
// when all of its keywords are substrings of the blob; sets are disjunctive
// for the same rule. Patterns exist for cases needing word-boundary precision.
type Rule struct {
	Type        FieldType
	KeywordSets [][]string
	Patterns    []*regexp.Regexp
	Value       func(schemas.ClientRecord) string
}

// The standalone date words must not fire on "birthday" or "monthly".
var (
	reMonth = regexp.MustCompile(`\bmonth\b`)
	reDay   = regexp.MustCompile(`\bday\b`)
	reYear  = regexp.MustCompile(`\byear\b`)
	reFName = regexp.MustCompile(`\bf(?:irst)?name\b`)
	reLName = regexp.MustCompile(`\bl(?:ast)?name\b`)
	reTel   = regexp.MustCompile(`\btel\b`)
)

// defaultRules is the immutable, ordered rule table. Evaluation is strictly
// in-order and the first satisfied rule wins, so more specific evidence
// ("legal first name", "preferred name") sits above generic forms, and the
// bare full-name fallback sits last.
var defaultRules = []Rule{
	{
		Type:        TypeEmail,
		KeywordSets: [][]string{{"email"}, {"e-mail"}},
		Value:       func(r schemas.ClientRecord) string { return r.Email },
	},
	{
		Type:        TypePhone,
		KeywordSets: [][]string{{"phone"}, {"mobile"}, {"cell"}},
		Patterns:    []*regexp.Regexp{reTel},
		Value:       func(r schemas.ClientRecord) string { return r.Phone },
	},
	{
		Type:        TypePreferredName,
		KeywordSets: [][]string{{"preferred", "name"}, {"nickname"}, {"goes", "by"}, {"known", "as"}},
		Value:       func(r schemas.ClientRecord) string { return r.PreferredName },
	},
	{
		Type:        TypeFirstName,
		KeywordSets: [][]string{{"legal", "first", "name"}},
		Value:       func(r schemas.ClientRecord) string { return r.FirstName },
	},
	{
		Type:        TypeLastName,
		KeywordSets: [][]string{{"legal", "last", "name"}},
		Value:       func(r schemas.ClientRecord) string { return r.LastName },
	},
	{
		Type:        TypeFirstName,
		KeywordSets: [][]string{{"first", "name"}, {"given", "name"}},
		Patterns:    []*regexp.Regexp{reFName},
		Value:       func(r schemas.ClientRecord) string { return r.FirstName },
	},
	{
		Type:        TypeLastName,
		KeywordSets: [][]string{{"last", "name"}, {"surname"}, {"family", "name"}},
		Patterns:    []*regexp.Regexp{reLName},
		Value:       func(r schemas.ClientRecord) string { return r.LastName },
	},
	{
		Type:        TypeDOBMonth,
		Patterns:    []*regexp.Regexp{reMonth},
		KeywordSets: [][]string{{"dob", "mm"}},
		Value:       func(r schemas.ClientRecord) string { return r.DOBMonth },
	},
	{
		Type:        TypeDOBDay,
		Patterns:    []*regexp.Regexp{reDay},
		KeywordSets: [][]string{{"dob", "dd"}},
		Value:       func(r schemas.ClientRecord) string { return r.DOBDay },
	},
	{
		Type:        TypeDOBYear,
		Patterns:    []*regexp.Regexp{reYear},
		KeywordSets: [][]string{{"dob", "yyyy"}},
		Value:       func(r schemas.ClientRecord) string { return r.DOBYear },
	},
	{
		Type:        TypeFullName,
		KeywordSets: [][]string{{"full", "name"}, {"your", "name"}},
		Value:       func(r schemas.ClientRecord) string { return r.FullName() },
	},
}
