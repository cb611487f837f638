// Package apperr defines the typed failures surfaced by repositories.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure.
type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindValidation Kind = "VALIDATION"
	KindStorage    Kind = "STORAGE"
)

// Error is a domain failure carrying the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports that a referenced record is absent.
func NotFound(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Err: errors.New(msg)}
}

// Validation wraps a draft that failed input checks.
func Validation(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// Storage wraps an underlying store fault. A nil err yields nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}

func IsNotFound(err error) bool   { return Is(err, KindNotFound) }
func IsValidation(err error) bool { return Is(err, KindValidation) }
