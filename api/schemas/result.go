// api/schemas/result.go
package schemas

// FillResult is the output contract of one fill invocation.
type FillResult struct {
	// Success is true iff FieldsFilled > 0.
	Success bool `json:"success"`
	// FieldsFilled counts individual form controls the engine committed a
	// value to during this pass.
	FieldsFilled int `json:"fieldsFilledCount"`
	// Message is a human-readable summary, populated on both success and
	// failure.
	Message string `json:"message"`
}

// NewFillResult derives the Success flag from the fill count.
func NewFillResult(filled int, message string) FillResult {
	return FillResult{
		Success:      filled > 0,
		FieldsFilled: filled,
		Message:      message,
	}
}

// Failure builds an unsuccessful result with zero fills.
func Failure(message string) FillResult {
	return FillResult{Success: false, FieldsFilled: 0, Message: message}
}
