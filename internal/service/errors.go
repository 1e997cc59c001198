package service

import (
	"errors"
	"strings"
)

var (
	// ErrInvalid is matched by every ValidationError.
	ErrInvalid = errors.New("invalid input")
	// ErrSlotUnavailable means the requested start time is not offered for the service.
	ErrSlotUnavailable = errors.New("time slot is not available")
)

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func invalid(msgs ...string) error {
	return &ValidationError{Errors: msgs}
}
