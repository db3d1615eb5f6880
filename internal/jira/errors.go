package jira

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the general failure of a remote Jira operation: transport
// failure, malformed JSON, a missing required response field, or an OAuth
// handshake problem. StatusCode carries the HTTP status when one was
// received, 500 for connection-level failures.
type APIError struct {
	StatusCode int
	Message    string
}

func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{StatusCode: statusCode, Message: message}
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("jira api error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("jira api error (status %d): %s", e.StatusCode, e.Message)
}

// InvalidResourceError is the remote-404 specialization of APIError, letting
// callers distinguish "does not exist" from a real failure.
type InvalidResourceError struct {
	APIError
}

func NewInvalidResourceError(message string) *InvalidResourceError {
	return &InvalidResourceError{APIError{StatusCode: http.StatusNotFound, Message: message}}
}

func (e *InvalidResourceError) Unwrap() error {
	return &e.APIError
}

// UnauthorizedError signals a remote 401 or the absence of a usable local
// token. RedirectURL is the OAuth authorize URL the caller should send the
// user to instead of treating this as a hard failure.
type UnauthorizedError struct {
	RedirectURL string
	Message     string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("jira authorization required, authorize at %s", e.RedirectURL)
	}
	return fmt.Sprintf("jira authorization required (%s), authorize at %s", e.Message, e.RedirectURL)
}

// IsNotFound reports whether err is an InvalidResourceError.
func IsNotFound(err error) bool {
	var notFound *InvalidResourceError
	return errors.As(err, &notFound)
}

// IsUnauthorized reports whether err is an UnauthorizedError.
func IsUnauthorized(err error) bool {
	var unauthorized *UnauthorizedError
	return errors.As(err, &unauthorized)
}

// IsAPIError reports whether err belongs to the Jira error taxonomy at all.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
