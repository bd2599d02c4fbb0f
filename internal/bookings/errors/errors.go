package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrDuplicateNumber = errors.New("booking number already exists")

	ErrVersionConflict = errors.New("booking was modified concurrently")

	ErrDuplicateTransition = errors.New("transition sequence already recorded")
)
