// Package errors defines the RMI runtime's error taxonomy.
//
// Every remote interface method must declare Kind Transport among its
// failure types (see package descriptor); the skeleton and stub use that
// declaration to decide whether a user failure travels back to the caller
// as-is or wrapped in a transport failure.
package errors

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind identifies which of the runtime's error categories a failure
// belongs to.
type Kind int

const (
	// NullArgument means a required argument was absent.
	NullArgument Kind = iota
	// BadInterface means a descriptor is not an interface, or one of its
	// methods does not declare Transport among its failures.
	BadInterface
	// IllegalState means a skeleton cannot yet provide the address or port
	// a stub factory overload needs.
	IllegalState
	// UnknownHost means a wildcard/local address could not be resolved.
	UnknownHost
	// Transport is the catch-all for wire failures: serialization,
	// connection, read/write, and protocol violations. Every remote
	// interface method must declare it.
	Transport
	// User marks a failure that originated in the user's implementation
	// method and is transported verbatim.
	User
)

func (k Kind) String() string {
	switch k {
	case NullArgument:
		return "null-argument"
	case BadInterface:
		return "bad-interface"
	case IllegalState:
		return "illegal-state"
	case UnknownHost:
		return "unknown-host"
	case Transport:
		return "transport"
	case User:
		return "user"
	default:
		return "unknown"
	}
}

// grpcCode maps a Kind onto the closest google.golang.org/grpc/codes value,
// giving the runtime's error taxonomy a real, ecosystem-standard status
// representation on top of the bespoke Kind enum.
func (k Kind) grpcCode() codes.Code {
	switch k {
	case NullArgument:
		return codes.InvalidArgument
	case BadInterface:
		return codes.InvalidArgument
	case IllegalState:
		return codes.FailedPrecondition
	case UnknownHost:
		return codes.NotFound
	case Transport:
		return codes.Unavailable
	case User:
		return codes.Unknown
	default:
		return codes.Unknown
	}
}

// Error is the concrete failure value the runtime raises at API boundaries
// and transports across the wire for the Transport kind. User failures are
// transported as whatever value the user's method raised, not as an Error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, cause error) *Error {
	if cause == nil {
		return &Error{Kind: kind}
	}
	return &Error{Kind: kind, Message: cause.Error(), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rmi: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("rmi: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Status renders the error as a *google.golang.org/grpc/status.Status,
// preserving the Kind in the status message so a peer without access to
// this package can still tell what went wrong from the code+message pair.
func (e *Error) Status() *status.Status {
	return status.New(e.Kind.grpcCode(), e.Error())
}

// Is reports whether err is an *Error of the given kind. It does not match
// user failures, which are never *Error values.
func Is(err error, kind Kind) bool {
	rmiErr, ok := err.(*Error)
	return ok && rmiErr.Kind == kind
}

// Transportf builds a Transport-kind error, the runtime's catch-all for wire
// failures (serialization, connection, protocol violations, and server-side
// dispatch errors that are not the user method's own failure).
func Transportf(format string, args ...interface{}) *Error {
	return New(Transport, fmt.Sprintf(format, args...))
}
