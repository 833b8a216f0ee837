package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrLoad           = errors.New("load roster")
	ErrSave           = errors.New("save roster")
	ErrUnknownBackend = errors.New("unknown store backend")
)
