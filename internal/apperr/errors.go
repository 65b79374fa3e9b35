// Package apperr defines the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	// ErrCycleDetected marks a structural change that would loop the hierarchy.
	ErrCycleDetected = errors.New("cycle detected")
)
