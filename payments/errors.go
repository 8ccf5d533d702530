package payments

import "errors"

var (
	// ErrNotConfigured marks a missing gateway secret or key. It is a server
	// fault, never the caller's, and is not retried.
	ErrNotConfigured = errors.New("not configured")
	// ErrMissingDetails is returned before any cryptographic work when a
	// callback lacks one of its required fields.
	ErrMissingDetails = errors.New("missing payment details")
	// ErrUnauthenticated is returned when no user is bound to the request.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError is a client input problem (amount range, required fields).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
