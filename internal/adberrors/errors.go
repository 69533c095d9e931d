// Package adberrors provides the closed set of error kinds the ADB client
// surfaces to callers, following the same ErrorCode-plus-struct shape used
// throughout this codebase's storage layer.
package adberrors

import "fmt"

// ErrorCode identifies the kind of failure. The set is closed: no new codes
// are added without updating every switch over ErrorCode in this module.
type ErrorCode int

const (
	// InvalidHost indicates the device endpoint could not be parsed or resolved.
	InvalidHost ErrorCode = iota + 1

	// ConnectionClosed indicates the transport reached EOF or was shut down
	// while a read or write was in flight.
	ConnectionClosed

	// ConnectionTimeout indicates connect() did not complete within its deadline.
	ConnectionTimeout

	// ProtocolError indicates a malformed frame: bad magic or unknown command.
	ProtocolError

	// AuthenticationFailed indicates neither a signature nor a public key
	// could be offered in response to an AUTH challenge.
	AuthenticationFailed

	// StreamClosed indicates the peer closed a stream (CLSE) while the
	// caller still expected data, or OPEN was rejected outright.
	StreamClosed

	// SyncFailed indicates the SYNC sub-protocol's device-side peer replied
	// with a FAIL frame.
	SyncFailed

	// InvalidResponse indicates a terminal SYNC reply identifier that is
	// neither OKAY nor FAIL.
	InvalidResponse

	// KeyGenerationFailed indicates the RSA key store could not generate or
	// persist a keypair.
	KeyGenerationFailed
)

// String returns the code's name, matching spec.md's taxonomy.
func (c ErrorCode) String() string {
	switch c {
	case InvalidHost:
		return "InvalidHost"
	case ConnectionClosed:
		return "ConnectionClosed"
	case ConnectionTimeout:
		return "ConnectionTimeout"
	case ProtocolError:
		return "ProtocolError"
	case AuthenticationFailed:
		return "AuthenticationFailed"
	case StreamClosed:
		return "StreamClosed"
	case SyncFailed:
		return "SyncFailed"
	case InvalidResponse:
		return "InvalidResponse"
	case KeyGenerationFailed:
		return "KeyGenerationFailed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Error is the concrete error type returned by every package under
// internal/adb and internal/apkzip. Detail carries kind-specific context
// (e.g. the malformed field, the FAIL message text); Cause carries an
// optional wrapped underlying error (e.g. a *net.OpError).
type Error struct {
	Code   ErrorCode
	Detail string
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Cause)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	default:
		return e.Code.String()
	}
}

// Unwrap exposes Cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Code, so callers can
// write errors.Is(err, adberrors.New(adberrors.StreamClosed, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an *Error with the given code and detail.
func New(code ErrorCode, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// Wrap creates an *Error with the given code and detail, wrapping cause.
func Wrap(code ErrorCode, detail string, cause error) *Error {
	return &Error{Code: code, Detail: detail, Cause: cause}
}

// Code extracts the ErrorCode from err if it (or something it wraps) is an
// *Error, returning ok=false otherwise.
func Code(err error) (code ErrorCode, ok bool) {
	var e *Error
	if as(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// as is a tiny local errors.As to avoid importing the standard errors
// package purely for this one helper while keeping Code dependency-free
// of the call site's own error-handling imports.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
