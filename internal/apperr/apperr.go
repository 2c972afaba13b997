package apperr

import (
	stdErrors "errors"
	"fmt"
)

// Kind classifies failures by how the actor should be told about them.
type Kind string

const (
	// KindValidation is malformed input; the actor is reprompted and no transition happens.
	KindValidation Kind = "validation"
	// KindGuard is a well-formed action the current state does not allow.
	KindGuard Kind = "guard"
	// KindConflict is a lost race against another actor on the same record.
	KindConflict Kind = "conflict"
	KindNotFound  Kind = "not_found"
	KindForbidden Kind = "forbidden"
	// KindGone means the record moved on (cancelled, already paid) and the conversation must restart.
	KindGone       Kind = "gone"
	KindDependency Kind = "dependency"
	KindInternal   Kind = "internal"
)

type Error struct {
	kind    Kind
	message string
	cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

func Wrap(kind Kind, err error, message string) *Error {
	if err == nil {
		return New(kind, message)
	}
	return &Error{kind: kind, message: message, cause: err}
}

func (e *Error) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in the chain, or nil.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// KindOf reports the kind of the first *Error in the chain; untyped errors are internal.
func KindOf(err error) Kind {
	if typed := As(err); typed != nil {
		return typed.Kind()
	}
	return KindInternal
}
