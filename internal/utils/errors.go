package utils

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the prediction pipeline. Callers match them with errors.Is.
var (
	// ErrPredictorUnavailable means the prediction service could not be reached.
	ErrPredictorUnavailable = errors.New("prediction service unavailable")
	// ErrPredictorStatus means the prediction service answered with a non-2xx status.
	ErrPredictorStatus = errors.New("prediction service returned an error status")
	// ErrPredictorMalformed means the prediction service answered 2xx with an unusable body.
	ErrPredictorMalformed = errors.New("prediction service response malformed")
	// ErrStorage wraps every failure of the persistence layer.
	ErrStorage = errors.New("storage failure")
)

// ValidationError represents an error occurring during data validation.
type ValidationError struct {
	Message string
	Fields  FieldErrors
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Fields.Error())
}

// NewFieldValidationError wraps a set of field violations.
func NewFieldValidationError(fields FieldErrors) error {
	return &ValidationError{
		Message: "Validation failed",
		Fields:  fields,
	}
}

// FieldError is a single violated constraint on a request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors collects violations in the order they were found.
type FieldErrors []FieldError

// Add appends a violation for field.
func (f *FieldErrors) Add(field, message string) {
	*f = append(*f, FieldError{Field: field, Message: message})
}

// Error joins the violations as "field: message" pairs.
func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for _, fe := range f {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return strings.Join(parts, "; ")
}

// AsValidationError reports whether err carries a ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
