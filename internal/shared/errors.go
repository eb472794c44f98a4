package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the actor is not permitted to perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateEmail indicates the email address is already taken.
	ErrDuplicateEmail = errors.New("email already taken")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError carries field-scoped messages so callers can render
// targeted feedback per field.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for the given fields.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// UserSafeMessage maps an error to a message safe to show to end users.
// Denials deliberately do not reveal which permission was missing.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "You are not permitted to perform this action."
	case errors.Is(err, ErrNotFound):
		return "The requested record does not exist."
	case errors.Is(err, ErrDuplicateEmail):
		return "This email address is already taken."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	default:
		return "Something went wrong. Please try again."
	}
}
