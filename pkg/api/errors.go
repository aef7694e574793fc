package api

import (
	"errors"
	"fmt"
)

// ErrNotFound covers both 404 responses and "200 but no record yet" polls
// (a payment session whose ticket has not materialized).
var ErrNotFound = errors.New("resource not found")

// NetworkError wraps a transport-level failure: DNS, refused connection,
// timeout. The request never produced an HTTP status.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response, carrying the backend's message when one
// was present in the envelope.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// ValidationError is an input rejection, either client-side (validator) or a
// backend 4xx that names a bad field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsUnauthorized(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == 401
}
