package service

import (
	"errors"

	"github.com/okian/tradeval/internal/domain/model"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("revaluation queue is full, retry later")
)

// ErrorKind names the error family for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, model.ErrComputation):
		return "computation"
	case errors.Is(err, ErrBackpressure):
		return "backpressure"
	case errors.Is(err, ErrNotStarted):
		return "unavailable"
	default:
		return "internal"
	}
}
