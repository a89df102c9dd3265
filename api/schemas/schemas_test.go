// api/schemas/schemas_test.go
package schemas

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRecordNormalize(t *testing.T) {
	r := ClientRecord{
		ClientType:  "  Adult ",
		BillingType: "Self-Pay",
		FirstName:   " Ana ",
		Phone:       " (555) 010-2020 ",
	}

	n := r.Normalize()
	assert.Equal(t, "adult", n.ClientType)
	assert.Equal(t, "self-pay", n.BillingType)
	assert.Equal(t, "Ana", n.FirstName)
	assert.Equal(t, "(555) 010-2020", n.Phone)

	// The receiver is untouched.
	assert.Equal(t, "  Adult ", r.ClientType)
}

func TestClientRecordIsEmpty(t *testing.T) {
	assert.True(t, ClientRecord{}.IsEmpty())
	assert.False(t, ClientRecord{Email: "a@b.test"}.IsEmpty())
}

func TestClientRecordFullName(t *testing.T) {
	assert.Equal(t, "Ana Diaz", ClientRecord{FirstName: "Ana", LastName: "Diaz"}.FullName())
	assert.Empty(t, ClientRecord{FirstName: "Ana"}.FullName())
	assert.Empty(t, ClientRecord{LastName: "Diaz"}.FullName())
}

func TestFillResultSuccessDerivation(t *testing.T) {
	assert.True(t, NewFillResult(5, "ok").Success)
	assert.False(t, NewFillResult(0, "nothing matched").Success)
	assert.False(t, Failure("no fields").Success)
}

func TestAutofillRequestJSONShape(t *testing.T) {
	// Wire shape must match the host UI's message contract exactly.
	raw := `{"action":"autofill","data":{"firstName":"Ana","dobMonth":"3"}}`

	var req AutofillRequest
	require.NoError(t, jsoniter.Unmarshal([]byte(raw), &req))
	assert.Equal(t, ActionAutofill, req.Action)
	assert.Equal(t, "Ana", req.Data.FirstName)
	assert.Equal(t, "3", req.Data.DOBMonth)

	out, err := jsoniter.Marshal(AutofillResponse{FillResult: NewFillResult(2, "filled 2 fields")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"fieldsFilledCount":2,"message":"filled 2 fields"}`, string(out))
}
