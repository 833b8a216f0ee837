package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrUnregistered    = errors.New("player not registered")
	ErrSamePlayer      = errors.New("a player cannot face themselves")
	ErrDuplicatePlayer = errors.New("a player appears more than once in the match")
	ErrInvalidInput    = errors.New("invalid input")
)
