package errors

import (
	"errors"
	"fmt"
)

// Common error types for the Micropub bridge
var (
	// Bridge / delegation errors
	ErrSessionExpired       = errors.New("authorization session expired or already used")
	ErrMissingParameters    = errors.New("missing required parameters")
	ErrMalformedBridgeState = errors.New("stored authorization request is malformed")

	// Discovery errors
	ErrNoMicropubEndpoint = errors.New("site does not advertise a micropub endpoint")
	ErrNoIndieAuthSupport = errors.New("site does not advertise indieauth endpoints")

	// Client errors
	ErrInvalidClient      = errors.New("invalid client")
	ErrInvalidRedirectURI = errors.New("invalid redirect URI")

	// Grant / token errors
	ErrInvalidGrant             = errors.New("invalid grant")
	ErrInvalidAuthorizationCode = errors.New("invalid authorization code")
	ErrInvalidCodeChallenge     = errors.New("invalid code challenge")
	ErrInvalidRefreshToken      = errors.New("invalid refresh token")
	ErrInvalidToken             = errors.New("invalid token")
	ErrTokenExpired             = errors.New("token expired")
	ErrInvalidRequest           = errors.New("invalid request")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")
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
