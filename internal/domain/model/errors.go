package model

import "errors"

// ErrIncompatibleHistory marks a match history entry that does not carry the
// required field set. Operators must migrate or clear such entries.
var ErrIncompatibleHistory = errors.New("incompatible match history entry; migrate or clear old history")
