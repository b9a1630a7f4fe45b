package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// Locally resolved errors: returned before any network call is made.
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrOperationInProgress = errors.New("operation already in progress for this job")
	ErrInvalidState        = errors.New("operation not valid for current job status")

	// Server-enforced: read-only share grant.
	ErrPermissionDenied = errors.New("permission denied")

	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotCredentialed = errors.New("no api credential available")
)

// PermissionDeniedCode is the error code the verification service uses for
// state-changing calls made through a read-only share grant.
const PermissionDeniedCode = "permission_denied"

// RemoteError is the single normalized shape for any non-2xx (or non-success
// envelope) response from the remote service.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
	Payload    []byte
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("remote error %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("remote error %d: %s", e.StatusCode, msg)
}

// Unwrap lets errors.Is(err, ErrPermissionDenied) match a classified response.
func (e *RemoteError) Unwrap() error {
	if e.PermissionDenied() {
		return ErrPermissionDenied
	}
	return nil
}

// PermissionDenied reports whether the server rejected the call because the
// caller only holds read access.
func (e *RemoteError) PermissionDenied() bool {
	return e.StatusCode == http.StatusForbidden || strings.EqualFold(e.Code, PermissionDeniedCode)
}

// TransportError means no server response was received at all.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsLocal reports whether err was resolved on the client without a round trip.
func IsLocal(err error) bool {
	return errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrOperationInProgress) ||
		errors.Is(err, ErrInvalidState)
}
