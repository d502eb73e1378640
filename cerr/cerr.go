// Package cerr provides the error kinds shared by every cardvault package.
package cerr

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a cardvault error.
type Kind string

const (
	InvalidContent      Kind = "InvalidContent"
	EmptyContent        Kind = "EmptyContent"
	UnknownAlgorithm    Kind = "UnknownAlgorithm"
	InvalidArgument     Kind = "InvalidArgument"
	HashConflict        Kind = "HashConflict"
	PageOutOfRange      Kind = "PageOutOfRange"
	NoStrongerAlgorithm Kind = "NoStrongerAlgorithm"
	UpgradeFailed       Kind = "UpgradeFailed"
	EngineFailure       Kind = "EngineFailure"
)

// Error is the concrete error type returned by cardvault packages.
type Error struct {
	kind    Kind
	message string
	cause   error
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Wrap creates an Error of the given kind that carries an underlying cause,
// retrievable via errors.Unwrap/errors.As.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Kind returns the error's category.
func (e *Error) Kind() Kind { return e.kind }

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, cerr.New(cerr.HashConflict, "")) or, more simply,
// use Of(err, kind) below.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == other.kind
}

// Of reports whether err is a *Error of the given kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}
