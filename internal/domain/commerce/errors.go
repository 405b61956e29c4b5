package commerce

import (
	"errors"
	"fmt"

	"github.com/commerce/wcmigrate/internal/domain/shared"
)

// Failure kinds returned by platform operations. Match them with errors.Is.
var (
	ErrConflictAlreadyExists = shared.ErrAlreadyExists
	ErrNotFound              = shared.ErrNotFound
	ErrInvalidInput          = shared.ErrInvalidInput
	ErrUnauthorized          = shared.ErrUnauthorized
	ErrRateLimited           = shared.ErrRateLimited
	ErrUnavailable           = shared.ErrUnavailable
	ErrRequestFailed         = shared.NewDomainError("REQUEST_FAILED", "request failed")
)

// ErrRegionNotFound is a configuration error: prices cannot be bound.
var ErrRegionNotFound = errors.New("commerce: region not found")

// PlatformError is a classified failure of one platform call.
type PlatformError struct {
	Op      string
	Kind    *shared.DomainError
	Status  int
	Type    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *PlatformError) Error() string {
	msg := fmt.Sprintf("commerce: %s: %s", e.Op, e.Kind.Message)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the kind and the underlying cause.
func (e *PlatformError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewPlatformError builds a PlatformError of the given kind.
func NewPlatformError(op string, kind *shared.DomainError, status int, errType, message string) *PlatformError {
	return &PlatformError{Op: op, Kind: kind, Status: status, Type: errType, Message: message}
}

// IsConflictAlreadyExists reports whether err is a duplicate conflict.
func IsConflictAlreadyExists(err error) bool {
	return errors.Is(err, ErrConflictAlreadyExists)
}

// IsNotFound reports whether err means the resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
