// api/schemas/record.go
package schemas

import "strings"

// Client type values accepted by the intake form's first radio group.
const (
	ClientTypeAdult  = "adult"
	ClientTypeMinor  = "minor"
	ClientTypeCouple = "couple"
)

// Billing type values accepted by the intake form's second radio group.
const (
	BillingTypeSelfPay   = "self-pay"
	BillingTypeInsurance = "insurance"
)

// ClientRecord is the input contract for one autofill invocation. Every field
// is optional; an entirely empty record is valid and simply fills nothing.
// The record is owned by the caller and is cloned at the engine boundary, so
// the engine never mutates or retains caller data.
type ClientRecord struct {
	ClientType    string `json:"clientType" mapstructure:"client_type"`
	BillingType   string `json:"billingType" mapstructure:"billing_type"`
	FirstName     string `json:"firstName" mapstructure:"first_name"`
	LastName      string `json:"lastName" mapstructure:"last_name"`
	PreferredName string `json:"preferredName" mapstructure:"preferred_name"`
	Email         string `json:"email" mapstructure:"email"`
	// Phone is free text, expected pre-formatted as "(XXX) XXX-XXXX" but it
	// may arrive partially formatted or as bare digits.
	Phone    string `json:"phone" mapstructure:"phone"`
	DOBMonth string `json:"dobMonth" mapstructure:"dob_month"`
	DOBDay   string `json:"dobDay" mapstructure:"dob_day"`
	DOBYear  string `json:"dobYear" mapstructure:"dob_year"`
}

// Clone returns a deep copy of the record. ClientRecord currently holds only
// value types, but callers must not rely on that staying true.
func (r ClientRecord) Clone() ClientRecord {
	return r
}

// Normalize trims whitespace and lower-cases the enumerated fields. It is
// applied once at the boundary (message handler / CLI), never inside matchers.
func (r ClientRecord) Normalize() ClientRecord {
	n := r
	n.ClientType = strings.ToLower(strings.TrimSpace(r.ClientType))
	n.BillingType = strings.ToLower(strings.TrimSpace(r.BillingType))
	n.FirstName = strings.TrimSpace(r.FirstName)
	n.LastName = strings.TrimSpace(r.LastName)
	n.PreferredName = strings.TrimSpace(r.PreferredName)
	n.Email = strings.TrimSpace(r.Email)
	n.Phone = strings.TrimSpace(r.Phone)
	n.DOBMonth = strings.TrimSpace(r.DOBMonth)
	n.DOBDay = strings.TrimSpace(r.DOBDay)
	n.DOBYear = strings.TrimSpace(r.DOBYear)
	return n
}

// IsEmpty reports whether no field carries a value.
func (r ClientRecord) IsEmpty() bool {
	return r == ClientRecord{}
}

// FullName joins first and last name when both are present, otherwise "".
// Used by the full-name fallback rule.
func (r ClientRecord) FullName() string {
	if r.FirstName == "" || r.LastName == "" {
		return ""
	}
	return r.FirstName + " " + r.LastName
}
