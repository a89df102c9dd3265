// match/matcher_test.go
package match

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/intakefill/api/schemas"
)

var fullRecord = schemas.ClientRecord{
	ClientType:    "adult",
	BillingType:   "self-pay",
	FirstName:     "Ana",
	LastName:      "Diaz",
	PreferredName: "Annie",
	Email:         "ana@example.test",
	Phone:         "(555) 010-2020",
	DOBMonth:      "3",
	DOBDay:        "14",
	DOBYear:       "1990",
}

func TestMatchFirstNameTokenOrderings(t *testing.T) {
	m := NewMatcher()

	// "first" and "name" in either order, with intervening tokens, must
	// classify as firstName when the record carries one.
	blobs := []string{
		"first name",
		"name first",
		"client first legal name input",
		"firstname",
		"fname field",
		"intake first name control",
	}
	for _, blob := range blobs {
		t.Run(blob, func(t *testing.T) {
			res, ok := m.Match(blob, fullRecord)
			require.True(t, ok)
			assert.Equal(t, TypeFirstName, res.Type)
			assert.Equal(t, "Ana", res.Value)
		})
	}
}

func TestMatchTableByType(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		blob  string
		want  FieldType
		value string
	}{
		{"legal first name", TypeFirstName, "Ana"},
		{"legal last name", TypeLastName, "Diaz"},
		{"surname", TypeLastName, "Diaz"},
		{"family name", TypeLastName, "Diaz"},
		{"preferred name", TypePreferredName, "Annie"},
		{"nickname", TypePreferredName, "Annie"},
		{"goes by", TypePreferredName, "Annie"},
		{"email address", TypeEmail, "ana@example.test"},
		{"e-mail", TypeEmail, "ana@example.test"},
		{"phone number", TypePhone, "(555) 010-2020"},
		{"mobile", TypePhone, "(555) 010-2020"},
		{"tel input", TypePhone, "(555) 010-2020"},
		{"birth month", TypeDOBMonth, "3"},
		{"dob mm", TypeDOBMonth, "3"},
		{"day of birth", TypeDOBDay, "14"},
		{"birth year", TypeDOBYear, "1990"},
		{"full name", TypeFullName, "Ana Diaz"},
		{"your name", TypeFullName, "Ana Diaz"},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s->%s", tc.blob, tc.want), func(t *testing.T) {
			res, ok := m.Match(tc.blob, fullRecord)
			require.True(t, ok)
			assert.Equal(t, tc.want, res.Type)
			assert.Equal(t, tc.value, res.Value)
		})
	}
}

func TestMatchWordBoundaries(t *testing.T) {
	m := NewMatcher()

	// "birthday" must not fire the standalone day rule, nor "monthly" the
	// month rule. These blobs match nothing at all.
	for _, blob := range []string{"birthday", "monthly statement", "yearly plan", "hotel"} {
		_, ok := m.Match(blob, fullRecord)
		assert.False(t, ok, "blob %q must not match", blob)
	}
}

func TestMatchSpecificityOrdering(t *testing.T) {
	m := NewMatcher()

	// A blob carrying both preferred-name and first-name evidence resolves to
	// the more specific preferred name.
	res, ok := m.Match("preferred first name", fullRecord)
	require.True(t, ok)
	assert.Equal(t, TypePreferredName, res.Type)

	// Phone evidence beats the generic name fallback.
	res, ok = m.Match("your name phone contact", fullRecord)
	require.True(t, ok)
	assert.Equal(t, TypePhone, res.Type)
}

func TestMatchSkipsRulesWithEmptyValues(t *testing.T) {
	m := NewMatcher()

	// Without a preferred name on record, the blob falls through to nothing
	// rather than matching with an empty value.
	record := schemas.ClientRecord{FirstName: "Ana", LastName: "Diaz"}
	_, ok := m.Match("nickname", record)
	assert.False(t, ok)

	// An empty record matches nothing anywhere.
	for _, blob := range []string{"first name", "email", "phone"} {
		_, ok := m.Match(blob, schemas.ClientRecord{})
		assert.False(t, ok, "empty record must not match %q", blob)
	}
}

func TestMatchUnmatchedBlob(t *testing.T) {
	m := NewMatcher()
	_, ok := m.Match("favorite color", fullRecord)
	assert.False(t, ok)
}
