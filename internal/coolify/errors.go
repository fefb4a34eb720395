package coolify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// Kind classifies a failed upstream call.
type Kind int

const (
	KindNetworkError Kind = iota
	KindAuthenticationFailed
	KindAccessDenied
	KindNotFound
	KindUpstreamServerError
	KindRequestFailed
	KindServiceUnavailable
	KindRequestTimeout
	KindInvalidEndpoint
	KindInvalidResponse
)

var kindNames = map[Kind]string{
	KindNetworkError:         "network_error",
	KindAuthenticationFailed: "authentication_failed",
	KindAccessDenied:         "access_denied",
	KindNotFound:             "not_found",
	KindUpstreamServerError:  "upstream_server_error",
	KindRequestFailed:        "request_failed",
	KindServiceUnavailable:   "service_unavailable",
	KindRequestTimeout:       "request_timeout",
	KindInvalidEndpoint:      "invalid_endpoint",
	KindInvalidResponse:      "invalid_response",
}

// String returns a stable snake_case name, used as a metric attribute.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is a transport failure. Its message is fixed per Kind and never
// includes the upstream response body; the cause is kept for logging.
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAuthenticationFailed:
		return "Authentication failed"
	case KindAccessDenied:
		return "Access denied"
	case KindNotFound:
		return "Resource not found"
	case KindUpstreamServerError:
		return "Coolify server error"
	case KindRequestFailed:
		return fmt.Sprintf("Request failed with status %d", e.Status)
	case KindServiceUnavailable:
		return "Coolify service unavailable"
	case KindRequestTimeout:
		return "Request timeout"
	case KindInvalidEndpoint:
		return "Invalid endpoint"
	case KindInvalidResponse:
		return "Invalid response from Coolify"
	default:
		return "Network error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, and false if err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind, true
	}
	return 0, false
}

// statusError maps a non-2xx status to an *Error.
func statusError(status int) *Error {
	kind := KindRequestFailed
	switch {
	case status == http.StatusUnauthorized:
		kind = KindAuthenticationFailed
	case status == http.StatusForbidden:
		kind = KindAccessDenied
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status >= 500:
		kind = KindUpstreamServerError
	}
	return &Error{Kind: kind, Status: status}
}

// transportError classifies an error returned by http.Client.Do.
func transportError(err error) *Error {
	switch {
	case isTimeoutErr(err):
		return &Error{Kind: KindRequestTimeout, Err: err}
	case isUnavailableErr(err):
		return &Error{Kind: KindServiceUnavailable, Err: err}
	default:
		return &Error{Kind: KindNetworkError, Err: err}
	}
}

func isTimeoutErr(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// isUnavailableErr reports DNS failures and refused connections.
func isUnavailableErr(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
