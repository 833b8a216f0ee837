package api

import "errors"

// ErrBadRequest marks a request that could not be decoded or is missing
// required parameters.
var ErrBadRequest = errors.New("bad request")
