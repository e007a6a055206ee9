// Package apperr carries the workflow's error kinds so the HTTP layer can
// tell "already applied" apart from a generic failure.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindDuplicateRequest  Kind = "duplicate_request"
	KindInvalidTransition Kind = "invalid_transition"
	KindNoEscrowFound     Kind = "no_escrow_found"
	KindForbidden         Kind = "forbidden"
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
	KindInvalidOperation  Kind = "invalid_operation"
	// KindConflict is a storage serialization failure; the whole operation may be retried.
	KindConflict Kind = "conflict"
	KindInternal Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels like ErrNotFound work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Sentinels for errors.Is checks.
var (
	ErrDuplicateRequest  = &Error{Kind: KindDuplicateRequest}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrNoEscrowFound     = &Error{Kind: KindNoEscrowFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidOperation  = &Error{Kind: KindInvalidOperation}
	ErrConflict          = &Error{Kind: KindConflict}
)

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
