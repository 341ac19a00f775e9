package domain

import (
	"errors"
	"fmt"
)

// Precondition failures returned by service mutations. Callers compare with
// errors.Is.
var (
	ErrNoSession          = errors.New("no active session")
	ErrNotOrganization    = errors.New("session user is not an organization account")
	ErrDuplicateEmail     = errors.New("user already exists with this email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateID        = errors.New("record already exists")
)

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IsNotFound reports whether err wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// Invalid wraps ErrValidation with a detail message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
