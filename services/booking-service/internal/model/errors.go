package model

import "errors"

var (
	// ErrConflict: the requested interval overlaps a confirmed booking.
	ErrConflict = errors.New("time slot overlaps an existing booking")
	// ErrNotFound: no booking matches the given manage token or id.
	ErrNotFound = errors.New("booking not found")
	// ErrInvalidState: the operation is not allowed for the booking's status,
	// e.g. rescheduling a canceled booking.
	ErrInvalidState = errors.New("operation not allowed for booking status")
)
