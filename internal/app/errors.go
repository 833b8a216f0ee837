package service

import "errors"

// ErrDuplicateReport marks a match report whose id was already applied.
var ErrDuplicateReport = errors.New("match report already applied")
