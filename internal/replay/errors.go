package replay

import "errors"

// Sentinel kinds for replay errors.
var (
	ErrDecode      = errors.New("decode match log")
	ErrUnknownKind = errors.New("unknown event kind")
	ErrBadLadder   = errors.New("unknown ladder")
)
