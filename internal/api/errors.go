package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx response from the backend. Validation failures carry
// one or more structured detail messages; everything else carries at most
// a single detail string.
type Error struct {
	// StatusCode is the HTTP status of the failed response.
	StatusCode int

	// Details holds the structured messages from the response body's
	// "detail" field. Empty when the body was not parseable.
	Details []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("api: %s: %s", http.StatusText(e.StatusCode), strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("api: %s (HTTP %d)", http.StatusText(e.StatusCode), e.StatusCode)
}

// Messages returns the individual detail messages for user display.
func (e *Error) Messages() []string {
	return e.Details
}

// errorBody matches the backend's error envelope. The detail field is
// either a single string or an array of strings.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// parseError builds an *Error from a failed response body.
func parseError(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return apiErr
	}

	var single string
	if err := json.Unmarshal(envelope.Detail, &single); err == nil {
		apiErr.Details = []string{single}
		return apiErr
	}

	var many []string
	if err := json.Unmarshal(envelope.Detail, &many); err == nil {
		apiErr.Details = many
	}
	return apiErr
}

// IsUnauthorized reports whether err is an HTTP 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is an HTTP 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsValidation reports whether err is a 4xx validation failure carrying
// structured detail messages. 401s are authorization failures, not
// validation failures, even when they carry a detail string.
func IsValidation(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
		apiErr.StatusCode != http.StatusUnauthorized && len(apiErr.Details) > 0
}

// IsServerError reports whether err is a 5xx from the backend.
func IsServerError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 500
}
