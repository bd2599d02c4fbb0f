package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrSlotFull = errors.New("slot capacity exhausted")

	ErrReservationNotFound = errors.New("reservation not found")

	ErrSpecialDateNotFound = errors.New("special date not found")

	ErrDuplicateReservation = errors.New("reservation already exists")
)
