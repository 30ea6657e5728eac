package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)

	// Session transition errors
	ErrTaskPending   = errors.New("a task of this kind is already pending")
	ErrStaleTask     = errors.New("task is no longer current for this session")
	ErrNotSubmitted  = errors.New("risk form has not been submitted")
	ErrUnknownIntent = errors.New("unknown session intent")
)

// IsNotFoundError reports whether err is any kind of not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransitionError reports whether err was raised by a rejected session transition
func IsTransitionError(err error) bool {
	return errors.Is(err, ErrTaskPending) ||
		errors.Is(err, ErrStaleTask) ||
		errors.Is(err, ErrNotSubmitted) ||
		errors.Is(err, ErrUnknownIntent)
}
