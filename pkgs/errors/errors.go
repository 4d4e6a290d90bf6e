// Package errors defines the structured error taxonomy used throughout the
// query execution engine.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error per the taxonomy in the engine's error
// handling design: Protocol, Argument, State, Memory, Retryable and Timeout
// errors are each handled differently by the executor.
type Kind string

const (
	// Protocol marks a malformed server message or plan. Never retried.
	Protocol Kind = "PROTOCOL"
	// Argument marks bad input supplied by the caller (bindings, options).
	Argument Kind = "ARGUMENT"
	// State marks a broken engine invariant — treated as a bug.
	State Kind = "ILLEGAL_STATE"
	// Memory marks an engine-imposed budget exceeded.
	Memory Kind = "MEMORY_LIMIT_EXCEEDED"
	// Retryable marks a network/throttling error the transport layer may retry.
	Retryable Kind = "RETRYABLE"
	// Timeout marks a deadline passed. Final, not retried by the engine.
	Timeout Kind = "TIMEOUT"
)

// Location is the four-integer expression location attached to plan steps
// for error reporting: startLine, startColumn, endLine, endColumn.
type Location struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
	valid       bool
}

// NewLocation builds a Location, validating that all four components are
// non-negative as required at plan-decode time.
func NewLocation(startLine, startColumn, endLine, endColumn int) (Location, error) {
	if startLine < 0 || startColumn < 0 || endLine < 0 || endColumn < 0 {
		return Location{}, fmt.Errorf("expression location has negative component: (%d,%d)-(%d,%d)",
			startLine, startColumn, endLine, endColumn)
	}
	return Location{StartLine: startLine, StartColumn: startColumn, EndLine: endLine, EndColumn: endColumn, valid: true}, nil
}

func (l Location) String() string {
	if !l.valid {
		return "<unknown>"
	}
	return fmt.Sprintf("%d:%d-%d:%d", l.StartLine, l.StartColumn, l.EndLine, l.EndColumn)
}

// Error is the engine-wide structured error. It names the iterator that
// raised it and, when known, the expression location, so a caller can point
// a user at the offending part of the query.
type Error struct {
	Kind     Kind
	Message  string
	Cause    error
	Iterator string
	Loc      *Location
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Iterator != "" {
		prefix = fmt.Sprintf("%s[%s]", prefix, e.Iterator)
	}
	if e.Loc != nil {
		prefix = fmt.Sprintf("%s@%s", prefix, e.Loc)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error { return e.Cause }

// WithIterator sets the originating iterator's name and returns e for chaining.
func (e *Error) WithIterator(name string) *Error {
	e.Iterator = name
	return e
}

// WithLocation sets the expression location and returns e for chaining.
func (e *Error) WithLocation(loc Location) *Error {
	e.Loc = &loc
	return e
}

func new_(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// BadProtocol builds a Protocol error describing malformed server data.
func BadProtocol(format string, args ...interface{}) *Error {
	return new_(Protocol, format, args...)
}

// IllegalState builds a State error for a broken engine invariant.
func IllegalState(format string, args ...interface{}) *Error {
	return new_(State, format, args...)
}

// IllegalArgument builds an Argument error for bad caller input.
func IllegalArgument(format string, args ...interface{}) *Error {
	return new_(Argument, format, args...)
}

// MemoryLimitExceeded builds a Memory error naming the configured cap.
func MemoryLimitExceeded(capMB int64) *Error {
	return new_(Memory, "query exceeded the memory limit of %d MB", capMB)
}

// Wrap wraps an existing error as an engine error of the given kind, e.g. a
// Retryable network or throttling failure surfaced by the RPC facade.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	e := new_(kind, format, args...)
	e.Cause = cause
	return e
}

// IsRetryable reports whether err is (or wraps) a Retryable engine error.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == Retryable
	}
	return false
}
