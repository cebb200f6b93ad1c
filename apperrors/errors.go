// Package apperrors defines the error kinds shared by the repository,
// the reconciliation engine and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can react without string matching
type Kind string

const (
	KindValidation   Kind = "validation"
	KindPrecondition Kind = "precondition"
	KindNotFound     Kind = "not_found"
	KindIO           Kind = "io"
	KindRemote       Kind = "remote"
	KindConflict     Kind = "conflict"
	KindUnknown      Kind = "unknown"
)

// Error is a classified error with a human-readable message
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "createSnapshot"
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindNotFound}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

func newError(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation reports malformed input
func Validation(op, format string, args ...any) *Error {
	return newError(KindValidation, op, nil, format, args...)
}

// Precondition reports an operation that is not allowed in the current state
func Precondition(op, format string, args ...any) *Error {
	return newError(KindPrecondition, op, nil, format, args...)
}

// NotFound reports a missing project, version or remote item
func NotFound(op, format string, args ...any) *Error {
	return newError(KindNotFound, op, nil, format, args...)
}

// IO wraps a local file-system failure
func IO(op string, err error, format string, args ...any) *Error {
	return newError(KindIO, op, err, format, args...)
}

// Remote wraps a mirror provider failure
func Remote(op string, err error, format string, args ...any) *Error {
	return newError(KindRemote, op, err, format, args...)
}

// Conflict reports a name clash the caller must resolve
func Conflict(op, format string, args ...any) *Error {
	return newError(KindConflict, op, nil, format, args...)
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsPrecondition(err error) bool { return KindOf(err) == KindPrecondition }
func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsIO(err error) bool           { return KindOf(err) == KindIO }
func IsRemote(err error) bool       { return KindOf(err) == KindRemote }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
