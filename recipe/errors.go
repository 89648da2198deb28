package recipe

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or malformed field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// APIError is a non-success response from the remote recipe API.
type APIError struct {
	API        string
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("external API error from %s: %d - %s", e.API, e.StatusCode, e.Message)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsAPI checks if an error is an APIError
func IsAPI(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
