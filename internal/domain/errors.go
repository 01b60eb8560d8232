package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an id does not name a stored record.
var ErrNotFound = errors.New("not found")

// ErrInvalidState is returned when a notification transition is attempted
// from a terminal state.
var ErrInvalidState = errors.New("invalid notification state transition")

// ValidationError describes a malformed rule, recipient, or template.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
