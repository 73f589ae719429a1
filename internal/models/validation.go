package models

import (
	"errors"
	"strings"
)

// ErrInvalidInput is matched by every ValidationError.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError describes a request that failed field validation.
// The message is returned to API callers verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Invalid returns a ValidationError with the given message.
func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// MissingFields returns the validation error used when required fields are absent,
// e.g. "Missing required fields: name, status".
func MissingFields(fields ...string) error {
	if len(fields) == 1 {
		return Invalid("Missing required field: " + fields[0])
	}
	return Invalid("Missing required fields: " + strings.Join(fields, ", "))
}
