package model

import "errors"

// ErrorKind classifies failures surfaced by the core.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NotFound"
	KindInvalidTransition ErrorKind = "InvalidTransition"
	KindValidation        ErrorKind = "ValidationFailure"
	KindPersistence       ErrorKind = "PersistenceFailure"
)

// Error is a typed core failure. Errors of the same Kind match with errors.Is.
type Error struct {
	Kind      ErrorKind
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrPersistence       = &Error{Kind: KindPersistence}
)

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func InvalidTransition(msg string) error {
	return &Error{Kind: KindInvalidTransition, Message: msg}
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Persistence wraps a storage failure. Only write conflicts are retryable.
func Persistence(msg string, err error, retryable bool) error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err, Retryable: retryable}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err is a failure the caller may retry after re-reading.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
