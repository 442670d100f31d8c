package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure kind. Use errors.Is against these.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")

	// ErrStuck is returned when a non-terminal step has no eligible forward transition.
	ErrStuck = errors.New("no eligible transition")

	// ErrSessionNotFound is returned when an instance has no cached session state.
	ErrSessionNotFound = errors.New("session not found")
)

// Kind is the stable category of an Error.
type Kind uint8

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindValidation
	KindStuck
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation_error"
	case KindStuck:
		return "stuck"
	default:
		return "internal_error"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindForbidden:
		return ErrForbidden
	case KindValidation:
		return ErrValidation
	case KindStuck:
		return ErrStuck
	default:
		return nil
	}
}

// Error is a typed failure with a stable Kind and a human-readable Detail.
type Error struct {
	Kind   Kind
	Op     string // Operation that detected the failure
	Detail string
	Err    error // Underlying cause, if any
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// NotFoundf reports a reference that does not exist in the expected scope.
func NotFoundf(op, format string, args ...any) *Error {
	return newError(KindNotFound, op, format, args...)
}

// Conflictf reports a duplicate code or a lost concurrent update.
func Conflictf(op, format string, args ...any) *Error {
	return newError(KindConflict, op, format, args...)
}

// Forbiddenf reports navigation to a step outside the allowed set.
func Forbiddenf(op, format string, args ...any) *Error {
	return newError(KindForbidden, op, format, args...)
}

// Invalidf reports an authoring-time definition that breaks an invariant.
func Invalidf(op, format string, args ...any) *Error {
	return newError(KindValidation, op, format, args...)
}

// Stuckf reports a submission that cannot advance.
func Stuckf(op, format string, args ...any) *Error {
	return newError(KindStuck, op, format, args...)
}

// KindOf extracts the Kind of err. Untyped errors are KindInternal unless they wrap a sentinel.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrStuck):
		return KindStuck
	}
	return KindInternal
}

// DetailOf returns the human-readable detail of a typed error, or err.Error().
func DetailOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Detail != "" {
		return de.Detail
	}
	return err.Error()
}
