package capture

import "fmt"

// ValidationError reports malformed or logically invalid capture input.
// It is surfaced synchronously to the capture flow; no record is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func errValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
