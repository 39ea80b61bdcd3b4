// Package qerr defines the platform error taxonomy shared by the registry,
// dispatcher, transport and supervisor.
//
// Every failure that crosses a package boundary is classified with a Kind so
// callers can distinguish a configuration mistake from a runtime backend
// fault without string matching. Errors carry the unit index and endpoint
// they relate to, when known.
package qerr

import (
	"errors"
	"fmt"
)

// Kind classifies a platform failure.
type Kind int

const (
	// Configuration indicates malformed or inconsistent setup. Fatal,
	// surfaced before any kernel is dispatched.
	Configuration Kind = iota
	// OutOfRange indicates an invalid unit index. Programmer error, fatal
	// to the call.
	OutOfRange
	// TransportUnavailable indicates an unreachable remote endpoint. The
	// caller may retry against a different unit; it is never retried
	// internally.
	TransportUnavailable
	// ProtocolViolation indicates a malformed wire payload. Fatal to the
	// call; usually a version or implementation mismatch.
	ProtocolViolation
	// BackendFailure indicates the executing simulator or QPU reported a
	// failure. Fatal to the call, not retried.
	BackendFailure
	// LaunchTimeout indicates a supervised server process failed to become
	// ready in time. Fatal to auto-launch setup.
	LaunchTimeout
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case OutOfRange:
		return "out_of_range"
	case TransportUnavailable:
		return "transport_unavailable"
	case ProtocolViolation:
		return "protocol_violation"
	case BackendFailure:
		return "backend_failure"
	case LaunchTimeout:
		return "launch_timeout"
	default:
		return "unknown"
	}
}

// Error is a classified platform error. Unit is -1 when the failure is not
// tied to a specific execution unit.
type Error struct {
	Kind     Kind
	Unit     int
	Endpoint string
	Msg      string
	Err      error
}

// New creates a classified error with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Unit: -1, Msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Unit: -1, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error around an underlying cause.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Unit: -1, Msg: msg, Err: err}
}

// WithUnit attaches the unit index the failure relates to.
func (e *Error) WithUnit(index int) *Error {
	e.Unit = index
	return e
}

// WithEndpoint attaches the endpoint the failure relates to.
func (e *Error) WithEndpoint(endpoint string) *Error {
	e.Endpoint = endpoint
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Unit >= 0 {
		s += fmt.Sprintf(" (unit %d)", e.Unit)
	}
	if e.Endpoint != "" {
		s += fmt.Sprintf(" (endpoint %s)", e.Endpoint)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err if it is (or wraps) a classified error.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// HasKind reports whether err is (or wraps) a classified error of kind k.
func HasKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
