package registry

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

// Code classifies every failure an engine operation can report. The code is
// what travels in an error reply, the message is human-readable detail.
type Code uint8

const (
	CodeUnknown Code = iota
	CodeBadRequest       // undecodable or structurally invalid command
	CodePermissionDenied // authorization failed for the requester's role
	CodeNotFound         // database or location does not exist
	CodeAlreadyExists    // name collision on create
	CodeIoError          // durable storage failure
)

// String returns the wire representation of a Code.
func (c Code) String() string {
	switch c {
	case CodeBadRequest:
		return "bad_request"
	case CodePermissionDenied:
		return "permission_denied"
	case CodeNotFound:
		return "not_found"
	case CodeAlreadyExists:
		return "already_exists"
	case CodeIoError:
		return "io_error"
	default:
		return "unknown"
	}
}

// ParseCode converts a wire code string back into a Code.
func ParseCode(s string) Code {
	switch s {
	case "bad_request":
		return CodeBadRequest
	case "permission_denied":
		return CodePermissionDenied
	case "not_found":
		return CodeNotFound
	case "already_exists":
		return CodeAlreadyExists
	case "io_error":
		return CodeIoError
	default:
		return CodeUnknown
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by all engine operations. It wraps a
// Code and a message.
type Error struct {
	Code Code
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// CodeOf extracts the Code from an error returned by the engine.
// Non-engine errors report CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
