package services

import (
	"errors"
	"fmt"

	"github.com/anjiri1684/tutor_desk/store"
	"github.com/anjiri1684/tutor_desk/utils"
	"github.com/google/uuid"
)

type ErrorKind string

const (
	KindNotFound                 ErrorKind = "not_found"
	KindInvalidReference         ErrorKind = "invalid_reference"
	KindInsufficientPackCapacity ErrorKind = "insufficient_pack_capacity"
	KindValidation               ErrorKind = "validation_failure"
	KindStorage                  ErrorKind = "storage_failure"
)

// Error is the failure type returned by every service operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindStorage {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a service error, or KindStorage for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidReference(field, value string) *Error {
	return &Error{Kind: KindInvalidReference, Message: fmt.Sprintf("invalid %s %q", field, value)}
}

func InsufficientPackCapacity(remaining, requested int) *Error {
	return &Error{
		Kind:    KindInsufficientPackCapacity,
		Message: fmt.Sprintf("not enough lessons remaining in pack: %d remaining, %d requested", remaining, requested),
	}
}

func ValidationFailure(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(err error) *Error {
	return &Error{Kind: KindValidation, Message: utils.ValidationMessage(err), Err: err}
}

func StorageFailure(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

// fromStore maps store.ErrNotFound to a NotFound error naming what, passes
// service errors through and wraps anything else as a storage failure.
func fromStore(op, what string, err error) error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: what + " not found", Err: err}
	default:
		return StorageFailure(op, err)
	}
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, InvalidReference(field, raw)
	}
	return id, nil
}
