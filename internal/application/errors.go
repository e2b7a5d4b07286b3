package application

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by application services.
var (
	// ErrCredentialUnavailable indicates the catalog credential could not be
	// obtained from the secret store, or the stored payload was empty or malformed.
	ErrCredentialUnavailable = errors.New("catalog credential unavailable")

	// ErrMovieAlreadyExists indicates the catalog ID is already on the schedule.
	ErrMovieAlreadyExists = errors.New("movie already exists in schedule")
)

// ValidationError reports client input that failed validation. Field names the
// offending request field using its JSON name.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
