package errors

import (
	"errors"
	"fmt"
)

// Common error values for the marketplace client
var (
	// Session errors
	ErrNoSession      = errors.New("no session")
	ErrNoToken        = errors.New("no token returned")
	ErrAuthExpired    = errors.New("authentication expired")
	ErrInvalidSession = errors.New("invalid session data")
	ErrSessionEnded   = errors.New("session ended during refresh")

	// Request outcome classes
	ErrNetwork      = errors.New("network error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")
	ErrServer       = errors.New("server error")

	// Client-side form validation
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidImage = errors.New("invalid image")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
