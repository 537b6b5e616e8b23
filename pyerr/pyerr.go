package pyerr

import (
	"fmt"
	"strings"

	"github.com/epilys/pyo3/gil"
)

// Op indicates which bridge operation the error came from.
type Op string

const (
	OpDowncast Op = "downcast" // narrowing a handle to a typed view
	OpConvert  Op = "convert"  // Go value to foreign object
	OpExtract  Op = "extract"  // foreign object to Go value
	OpCall     Op = "call"     // a capability-surface call
)

// Kind categorizes the error.
type Kind string

const (
	KindTypeMismatch   Kind = "type_mismatch"
	KindForeignFailure Kind = "foreign_failure"
	KindUnsupported    Kind = "unsupported"
	KindOverflow       Kind = "overflow"
)

// Error is the structured error type used throughout the bridge.
type Error struct {
	Cause    error
	Op       Op
	Kind     Kind
	Expected string // expected foreign kind, for type mismatches
	Actual   string // actual foreign kind, for type mismatches
	Detail   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Op))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Expected != "" || e.Actual != "" {
		b.WriteString(": expected ")
		b.WriteString(e.Expected)
		b.WriteString(", got ")
		b.WriteString(e.Actual)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Op == t.Op && e.Kind == t.Kind
	}
	return false
}

// Convenience constructors for common error patterns

// TypeMismatch reports a downcast or extract against the wrong foreign kind.
func TypeMismatch(op Op, expected, actual string) *Error {
	return &Error{
		Op:       op,
		Kind:     KindTypeMismatch,
		Expected: expected,
		Actual:   actual,
	}
}

// Unsupported reports a Go type with no foreign counterpart.
func Unsupported(op Op, what string) *Error {
	return &Error{
		Op:     op,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Overflow reports a value that does not fit the foreign representation.
func Overflow(op Op, value any, target string) *Error {
	return &Error{
		Op:     op,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
	}
}

// Foreign wraps a runtime-reported failure description.
func Foreign(op Op, detail string) *Error {
	return &Error{
		Op:     op,
		Kind:   KindForeignFailure,
		Detail: detail,
	}
}

// Fetch reads and clears the runtime's pending error state, translating it
// into a host-native error. Call it after any capability-surface sentinel
// return (zero address or negative status); the pending state is not safe to
// ignore until fetched.
//
// If no failure is actually pending, Fetch still returns a non-nil error
// naming the inconsistency, since a sentinel without pending state means the
// runtime broke its own contract.
func Fetch(py *gil.Token) *Error {
	detail := py.Runtime().FetchError()
	if detail == "" {
		detail = "runtime signaled failure without pending error state"
	}
	return Foreign(OpCall, detail)
}
