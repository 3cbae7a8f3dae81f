package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrQueueFull = errors.New("revaluation queue full")
	ErrClosed    = errors.New("revaluation queue closed")
)
