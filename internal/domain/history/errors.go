package history

import "errors"

// Sentinel kinds for history errors.
var (
	ErrUnregistered = errors.New("player not registered")
	ErrSamePlayer   = errors.New("winner and loser must differ")
	ErrInvalidEntry = errors.New("invalid history entry")
)
