package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrSlotTaken means a scheduled booking already holds the
	// (dog, date, time) slot.
	ErrSlotTaken = errors.New("slot already has a scheduled booking")

	// ErrUserDayTaken means the user already holds a scheduled booking on
	// that date.
	ErrUserDayTaken = errors.New("user already has a scheduled booking that day")

	// ErrLockHeld means another in-flight request holds the advisory lock
	// for the slot.
	ErrLockHeld = errors.New("slot lock already held")
)
