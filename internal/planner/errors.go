package planner

import (
	"errors"
	"fmt"
)

// ValidationError reports missing or malformed user input. Nothing was
// changed when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// SaveError means the change was applied in memory but could not be
// written to the store.
type SaveError struct {
	Err error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save failed: %v", e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsSave(err error) bool {
	var se *SaveError
	return errors.As(err, &se)
}
