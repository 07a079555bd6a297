package signaling

import "errors"

// Errors surfaced to clients through the ack callback. The message is the wire form.
var (
	ErrFull  = errors.New("full")
	ErrTaken = errors.New("taken")
)
