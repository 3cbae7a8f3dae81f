package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for the engine. Typed errors below unwrap to these so
// callers can match with errors.Is and inspect details with errors.As.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrNotFound          = errors.New("not found")
	ErrComputation       = errors.New("computation failed")
	ErrInvalidTransition = errors.New("invalid calibration run transition")
)

// ValidationError reports a malformed asset, settings or configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports an attempt to start a calibration run while another
// one is running.
type ConflictError struct {
	RunID string
}

func (e *ConflictError) Error() string {
	if e.RunID == "" {
		return "calibration run already in progress"
	}
	return "calibration run already in progress: " + e.RunID
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// InsufficientDataError reports a calibration sample below the threshold.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient historical outcomes: have %d, need at least %d", e.Have, e.Need)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// ComputationError wraps an unexpected failure during search or fitting.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	if e.Err == nil {
		return e.Op + ": computation failed"
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes both the sentinel kind and the underlying cause.
func (e *ComputationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrComputation}
	}
	return []error{ErrComputation, e.Err}
}

// NotFoundError reports a missing team, league, asset or run. Only the
// service layer raises it.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
