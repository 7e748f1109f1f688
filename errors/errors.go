package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrTransport indicates the backend could not be reached at all
	ErrTransport = errors.New("backend unreachable")

	// ErrBadResponse indicates the backend answered with a failure status
	// or an unparseable body
	ErrBadResponse = errors.New("unknown server response")

	// ErrRequestInFlight indicates a question is already being answered
	ErrRequestInFlight = errors.New("request already in flight")

	// ErrNoDataset indicates no active dataset has been selected
	ErrNoDataset = errors.New("no active dataset")

	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")
)

// WrapError wraps an error with a context message
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsTransport checks if error is a transport failure
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsBadResponse checks if error is a bad response error
func IsBadResponse(err error) bool {
	return errors.Is(err, ErrBadResponse)
}

// IsRequestInFlight checks if error is an in-flight rejection
func IsRequestInFlight(err error) bool {
	return errors.Is(err, ErrRequestInFlight)
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
