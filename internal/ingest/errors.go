package ingest

import (
	"errors"
	"fmt"
)

// Client-input errors. These surface as 400 responses and are never retried.
var (
	ErrMissingTemperature = errors.New("temperature_c is required")
	ErrInvalidTimestamp   = errors.New("ts must be ISO-8601 (ex: 2025-08-11T16:20:00Z)")
)

// FieldError reports a field that was present but could not be coerced to
// its expected numeric type. A simply absent field is never a FieldError.
type FieldError struct {
	Field string
	Kind  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s must be %s", e.Field, e.Kind)
}

// IsClientError reports whether err is caused by the submitted payload
// rather than by storage or IO.
func IsClientError(err error) bool {
	var fieldErr *FieldError
	return errors.Is(err, ErrMissingTemperature) ||
		errors.Is(err, ErrInvalidTimestamp) ||
		errors.As(err, &fieldErr)
}
