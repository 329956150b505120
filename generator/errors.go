package generator

import (
	"errors"
	"fmt"
)

// ValidationError reports required input that is missing. It is raised before any upstream call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// UpstreamError reports a failed call to the chat-completion service.
// StatusCode is 0 when the request never got a response (transport failure or timeout).
type UpstreamError struct {
	StatusCode int
	Body       string
	Timeout    bool
	Cause      error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Timeout:
		return "ai service timed out"
	case e.StatusCode != 0:
		return fmt.Sprintf("ai service error: %d - %s", e.StatusCode, e.Body)
	case e.Cause != nil:
		return fmt.Sprintf("ai service unreachable: %v", e.Cause)
	default:
		return "ai service error"
	}
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// MalformedResponseError reports structuring output that is not the expected JSON shape.
// The pipeline recovers from it locally.
type MalformedResponseError struct {
	Raw   string
	Cause error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause == nil {
		return "malformed structured response"
	}
	return fmt.Sprintf("malformed structured response: %v", e.Cause)
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUpstream reports whether err carries an *UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
