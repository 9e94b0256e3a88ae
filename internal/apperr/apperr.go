// Package apperr defines the small error-kind taxonomy the engine and its
// transports use to decide how to respond to a failure: reject the request,
// drop the connection, or log and carry on.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purpose of mapping it onto a transport
// response. It deliberately mirrors the four cases a caller actually needs
// to distinguish, not every possible Go error.
type Kind int

const (
	// MalformedRequest means the caller sent something the engine can't
	// interpret: an unknown task kind, a zero speed, a move to the
	// current position.
	MalformedRequest Kind = iota
	// InvalidUnitID means the request named a unit that doesn't exist.
	InvalidUnitID
	// UnableToSend means a subscriber's outbound channel could not accept
	// an event (full buffer, closed connection).
	UnableToSend
	// InternalError means an invariant the engine relies on was violated;
	// it should never happen in a correct build.
	InternalError
)

func (k Kind) String() string {
	switch k {
	case MalformedRequest:
		return "MalformedRequest"
	case InvalidUnitID:
		return "InvalidUnitID"
	case UnableToSend:
		return "UnableToSend"
	case InternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying error with a Kind and the operation it happened
// in, the same shape the teacher uses around its UDP/protocol boundaries.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error for op, wrapping err (which may be nil).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind of err if it is (or wraps) an *Error, and
// InternalError otherwise — an unclassified error is treated as a bug.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalError
}
