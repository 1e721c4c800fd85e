package placeholder

import (
	"errors"
	"fmt"
)

// Sentinel errors for resolution.
var (
	ErrValidation          = errors.New("invalid request")
	ErrTranslationDegraded = errors.New("translation unavailable")
)

// FieldError reports an invalid request field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *FieldError) Unwrap() error {
	return ErrValidation
}

func fieldErr(field, format string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
