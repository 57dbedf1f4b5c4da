package impulse

import (
	"errors"
	"fmt"
)

// impulseError is a simple error type for sentinel errors in this package.
type impulseError string

func (e impulseError) Error() string { return string(e) }

// Errors the binding layer can detect before reaching native code.
const (
	ErrBlockNotFound      = impulseError("postprocessing block not found")
	ErrBlockTypeMismatch  = impulseError("postprocessing block type mismatch")
	ErrAlreadyInitialized = impulseError("classifier already initialized")
	ErrDeinitialized      = impulseError("classifier has been deinitialized")
	ErrEmptySignal        = impulseError("signal buffer is empty")
	ErrNilResult          = impulseError("result must not be nil")
	ErrNoEngine           = impulseError("no inference engine configured")
)

// ImpulseError represents an error from the Edge Impulse runtime or the
// binding layer, carrying the SDK status code it maps to.
type ImpulseError struct {
	Status  Status
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *ImpulseError) Error() string {
	if e.Context != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Context, e.Status.String(), e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Context, e.Status.String())
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Status.String(), e.Cause)
	}
	return e.Status.String()
}

// Unwrap returns the underlying cause.
func (e *ImpulseError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target status.
func (e *ImpulseError) Is(target error) bool {
	var other *ImpulseError
	if errors.As(target, &other) {
		return e.Status == other.Status
	}
	return false
}

// NewError creates a new ImpulseError with the given status.
func NewError(status Status, context string) *ImpulseError {
	return &ImpulseError{Status: status, Context: context}
}

// NewErrorWithCause creates a new ImpulseError with an underlying cause.
func NewErrorWithCause(status Status, context string, cause error) *ImpulseError {
	return &ImpulseError{Status: status, Context: context, Cause: cause}
}
