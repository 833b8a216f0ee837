package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrNotFound   = errors.New("player not found")
	ErrSamePlayer = errors.New("two different players are required")
)
