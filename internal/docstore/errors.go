package docstore

import (
	"errors"
	"fmt"
)

// Code categorizes a store failure the same way the remote rules engine does.
type Code string

const (
	CodePermissionDenied Code = "permission-denied"
	CodeNotFound         Code = "not-found"
	CodeUnavailable      Code = "unavailable"
	CodeInvalidArgument  Code = "invalid-argument"
	CodeInternal         Code = "internal"
)

var (
	ErrPermissionDenied = errors.New("missing or insufficient permissions")
	ErrNotFound         = errors.New("document not found")
	ErrUnavailable      = errors.New("store unavailable")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// Error carries the operation, target and category of a failed store call.
type Error struct {
	Op         Op
	Collection string
	ID         string
	Code       Code
	Err        error
}

func (e *Error) Error() string {
	target := e.Collection
	if e.ID != "" {
		target += "/" + e.ID
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, target, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, target, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets callers match on the category sentinels regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrPermissionDenied:
		return e.Code == CodePermissionDenied
	case ErrNotFound:
		return e.Code == CodeNotFound
	case ErrUnavailable:
		return e.Code == CodeUnavailable
	case ErrInvalidArgument:
		return e.Code == CodeInvalidArgument
	}
	return false
}

func newError(op Op, collection, id string, code Code, err error) *Error {
	return &Error{Op: op, Collection: collection, ID: id, Code: code, Err: err}
}

// CodeOf reports the category of err, or "" when err is nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	}
	return CodeInternal
}

func IsPermissionDenied(err error) bool {
	return CodeOf(err) == CodePermissionDenied
}
