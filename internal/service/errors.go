package service

import (
	"errors"
	"fmt"

	"github.com/danielnymberg/bokabuttle/internal/repository"
)

// ValidationError reports a malformed field.  No write has happened.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

// ForbiddenError reports a non-admin write against a closed event.
type ForbiddenError struct{ Msg string }

func (e *ForbiddenError) Error() string {
	if e.Msg == "" {
		return "forbidden"
	}
	return e.Msg
}

// NotFoundError reports an unknown event, session or admin.
type NotFoundError struct{ Resource string }

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// ConflictError reports a write that lost to existing state.  For slot
// claims TakenBy names the current occupant.
type ConflictError struct {
	Msg     string
	TakenBy string

	raced bool // detected by the conditional write, not the read before it
}

func (e *ConflictError) Error() string {
	if e.Msg == "" {
		return "slot already taken"
	}
	return e.Msg
}

// AuthError covers every authentication failure.  It carries
// no cause.
type AuthError struct{}

func (*AuthError) Error() string { return "unauthenticated" }

// InternalError wraps a storage failure.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *InternalError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsForbidden(err error) bool {
	var e *ForbiddenError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsAuth(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

func IsInternal(err error) bool {
	var e *InternalError
	return errors.As(err, &e)
}

// IsConflict reports whether err is a ConflictError and returns it.
func IsConflict(err error) (*ConflictError, bool) {
	var e *ConflictError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// storeErr translates repository sentinels into the service taxonomy and
// wraps everything else as internal.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrEventNotFound):
		return &NotFoundError{Resource: "event"}
	case errors.Is(err, repository.ErrSessionNotFound):
		return &NotFoundError{Resource: "session"}
	case errors.Is(err, repository.ErrAdminNotFound):
		return &NotFoundError{Resource: "admin"}
	case errors.Is(err, repository.ErrEmailExists):
		return &ConflictError{Msg: "email already exists"}
	case errors.Is(err, repository.ErrConflict):
		return &ConflictError{Msg: "another event was opened at the same time"}
	}
	return &InternalError{Op: op, Err: err}
}
