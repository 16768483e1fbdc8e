package domain

import "errors"

// Error kinds. Operations wrap these with context via fmt.Errorf("%w: ...")
// so callers branch with errors.Is.
var (
	// ErrValidation marks malformed input; the caller corrects and retries.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a reference to an unknown table, chair, order or item.
	ErrNotFound = errors.New("not found")

	// ErrOccupancyConflict marks an attempt to occupy a chair owned by a
	// different active order, or to shrink a table through an occupied chair.
	ErrOccupancyConflict = errors.New("occupancy conflict")

	// ErrInvalidTransition marks an order status change that is not reachable
	// from the current status.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConcurrentModification marks a stale-version write. Callers re-read
	// the aggregate and reissue the command.
	ErrConcurrentModification = errors.New("concurrent modification")
)
