package device

import (
	"errors"
	"fmt"
)

// ErrAlreadyRegistered is returned by an instance index when a record with
// the same device name already exists.
var ErrAlreadyRegistered = errors.New("device name already registered")

// NotFoundError reports a named lookup that had no match. The call fails, but
// the caller may retry with a corrected identifier.
type NotFoundError struct {
	Kind string
	Name string
}

// Error returns the error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// UnavailableError reports a required backing resource that could not be
// located or initialized. It is fatal for every call depending on that
// resource and is never retried within the process lifetime.
type UnavailableError struct {
	Kind string
	Err  error
}

// Error returns the error message.
func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s unavailable", e.Kind)
}

// Unwrap returns the underlying cause, if any.
func (e *UnavailableError) Unwrap() error { return e.Err }

// InvalidError reports a resource that was found but is structurally
// unusable, such as an image directory with corrupt metadata.
type InvalidError struct {
	Kind string
	Name string
	Err  error
}

// Error returns the error message.
func (e *InvalidError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q is invalid: %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("%s %q is invalid", e.Kind, e.Name)
}

// Unwrap returns the underlying cause, if any.
func (e *InvalidError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsUnavailable reports whether err is an UnavailableError.
func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}

// IsInvalid reports whether err is an InvalidError.
func IsInvalid(err error) bool {
	var target *InvalidError
	return errors.As(err, &target)
}
