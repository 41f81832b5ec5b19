package inventory

import "errors"

var (
	// ErrDuplicateName: a category or session with that name already exists.
	ErrDuplicateName = errors.New("name already exists")
	// ErrSessionComplete: counts of a completed session are frozen.
	ErrSessionComplete = errors.New("session is already complete")
	ErrInvalidInput    = errors.New("invalid input")
)
