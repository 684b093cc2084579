package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCapacityReached   = errors.New("activity is full")
	ErrConflict          = errors.New("already exists")
)
