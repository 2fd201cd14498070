package backend

import (
	"errors"
	"fmt"
)

// ErrUnreachable marks transport failures where no response arrived.
var ErrUnreachable = errors.New("backend unreachable")

// FetchError is returned when the backend answers with a non-OK status.
type FetchError struct {
	Op     string
	Status int
	Body   string
}

func (e *FetchError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
}

// UpstreamStatus exposes the backend status for error mapping.
func (e *FetchError) UpstreamStatus() int {
	return e.Status
}

// TransportError wraps failures that happened before a response arrived.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrUnreachable, e.Err}
}

// Unreachable is always true for transport errors.
func (e *TransportError) Unreachable() bool {
	return true
}

// DecodeError reports a malformed backend payload.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: malformed backend payload: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UpstreamStatus reports decode failures as a bad gateway.
func (e *DecodeError) UpstreamStatus() int {
	return 502
}

// IsStatus reports whether err is a FetchError with the given status.
func IsStatus(err error, status int) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Status == status
}
