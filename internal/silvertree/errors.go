// Package silvertree provides the session manager and resource client for the
// Silver Tree document store: login and token refresh against the auth
// service, and database/collection-scoped document operations against the
// resource service.
package silvertree

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by this package wraps exactly one of
// these, so callers branch with errors.Is instead of matching strings.
var (
	ErrAuthentication = errors.New("silvertree: login failed")
	ErrPrecondition   = errors.New("silvertree: precondition failed")
	ErrRefresh        = errors.New("silvertree: refresh failed")
	ErrConnectivity   = errors.New("silvertree: connectivity check failed")
	ErrOperation      = errors.New("silvertree: operation failed")
	ErrTransport      = errors.New("silvertree: transport error")
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, silvertree.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("silvertree: bad request")
	ErrUnauthorized = errors.New("silvertree: unauthorized")
	ErrForbidden    = errors.New("silvertree: forbidden")
	ErrNotFound     = errors.New("silvertree: not found")
	ErrConflict     = errors.New("silvertree: conflict")
	ErrThrottled    = errors.New("silvertree: throttled")
	ErrServerError  = errors.New("silvertree: server error")
)

// Error describes a failed session or resource call. Message holds the raw
// response body exactly as the server sent it.
type Error struct {
	Op         string // logical operation, e.g. "login" or "find_by_id"
	Kind       error  // one of the Err* kind sentinels
	StatusCode int    // 0 when no response was received
	RequestID  string
	Message    string
	Cause      error // underlying network, decode or context error
}

func (e *Error) Error() string {
	detail := e.Message
	if e.Cause != nil {
		if detail == "" {
			detail = e.Cause.Error()
		} else {
			detail += ": " + e.Cause.Error()
		}
	}

	switch {
	case e.StatusCode != 0 && e.RequestID != "":
		return fmt.Sprintf("silvertree: %s failed: HTTP %d (request-id: %s): %s",
			e.Op, e.StatusCode, e.RequestID, detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("silvertree: %s failed: HTTP %d: %s", e.Op, e.StatusCode, detail)
	default:
		return fmt.Sprintf("silvertree: %s failed: %s", e.Op, detail)
	}
}

// Unwrap exposes the kind sentinel, the status sentinel (if any) and the
// underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 3)

	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}

	if status := classifyStatus(e.StatusCode); status != nil {
		errs = append(errs, status)
	}

	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}

	return errs
}

// statusError builds an Error for a non-200 response.
func statusError(op string, kind error, resp *response) *Error {
	return &Error{
		Op:         op,
		Kind:       kind,
		StatusCode: resp.status,
		RequestID:  resp.requestID,
		Message:    string(resp.body),
	}
}

// preconditionError builds an Error for a call rejected before any request
// was sent.
func preconditionError(op, message string) *Error {
	return &Error{
		Op:      op,
		Kind:    ErrPrecondition,
		Message: message,
	}
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a dedicated sentinel (including 2xx).
func classifyStatus(code int) error {
	switch code {
	case 0:
		return nil
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// Kind returns the kind sentinel carried by err, or nil if err did not
// originate in this package.
func Kind(err error) error {
	var stErr *Error
	if errors.As(err, &stErr) {
		return stErr.Kind
	}

	return nil
}
