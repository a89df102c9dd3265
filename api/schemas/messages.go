// api/schemas/messages.go
package schemas

// ActionAutofill is the only action the engine's message handler accepts.
const ActionAutofill = "autofill"

// AutofillRequest is the inbound message envelope. A host UI builds the
// record, then sends {action:"autofill", data:{...}} over its message channel.
type AutofillRequest struct {
	Action string       `json:"action"`
	Data   ClientRecord `json:"data"`
}

// AutofillResponse is what the handler always resolves with, including for
// unknown actions and malformed payloads. It embeds the FillResult shape so
// hosts see a single response schema.
type AutofillResponse struct {
	FillResult
}
