package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the store, the service and the HTTP layer
var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateKey      = errors.New("invoice number already exists")
	ErrNotFound          = errors.New("invoice not found")
	ErrAttachmentMissing = errors.New("invoice has no pdf attachment")
	ErrAccessDenied      = errors.New("access denied")
	ErrUpstream          = errors.New("upstream failure")
)

// FieldError describes a single invalid field
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every invalid field of an input
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add records an invalid field
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns the error when at least one field failed
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError builds a validation error for one field
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}
