package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

// NewUpstreamError reports a non-OK answer from the ticketing backend.
func NewUpstreamError(message string, err error) error {
	return &DomainError{
		Code:       "UPSTREAM_ERROR",
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewUpstreamUnavailable reports that the backend could not be reached.
func NewUpstreamUnavailable(err error) error {
	return &DomainError{
		Code:       "UPSTREAM_UNAVAILABLE",
		Message:    "ticketing backend unavailable",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// upstreamStatus is implemented by transport errors that carry the
// backend's HTTP status.
type upstreamStatus interface {
	UpstreamStatus() int
}

// unreachable is implemented by transport errors raised before any
// backend response was received.
type unreachable interface {
	Unreachable() bool
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var down unreachable
	if errors.As(err, &down) && down.Unreachable() {
		return NewUpstreamUnavailable(err).(*DomainError)
	}
	var upstream upstreamStatus
	if errors.As(err, &upstream) {
		switch status := upstream.UpstreamStatus(); status {
		case http.StatusUnauthorized, http.StatusForbidden:
			de := NewUnauthorized("please login again").(*DomainError)
			de.Err = err
			return de
		case http.StatusNotFound:
			de := NewNotFound("resource", nil).(*DomainError)
			de.Err = err
			return de
		default:
			de := NewUpstreamError("ticketing backend request failed", err).(*DomainError)
			de.Details = map[string]any{"upstream_status": status}
			return de
		}
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}
