package api

import (
	"errors"
	"fmt"
)

// StatusError reports a non-2xx reply from the backend.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Message    string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bookfeed API error from %s: %s", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("bookfeed API error from %s: %s (%s)", e.Endpoint, e.Status, e.Message)
}

// BackendError reports a logical failure the backend encoded in a
// successful reply (success:false, status:error, or an error string).
type BackendError struct {
	Endpoint string
	Message  string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Endpoint)
	}
	return fmt.Sprintf("%s failed: %s", e.Endpoint, e.Message)
}

// IsStatus checks if err carries a *StatusError.
func IsStatus(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}

// IsBackend checks if err carries a *BackendError.
func IsBackend(err error) bool {
	var backendErr *BackendError
	return errors.As(err, &backendErr)
}

// BackendMessage returns the backend-supplied message carried by err, if any.
func BackendMessage(err error) string {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Message
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Message
	}
	return ""
}
