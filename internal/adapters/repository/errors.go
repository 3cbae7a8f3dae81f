package repository

import "errors"

// Sentinel kinds for repository errors. Missing records are reported as
// *model.NotFoundError.
var (
	ErrInvalidLimit  = errors.New("invalid chart limit")
	ErrInvalidRecord = errors.New("invalid record")
)
