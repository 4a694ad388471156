package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrFull   = errors.New("mutation queue full")
	ErrClosed = errors.New("mutation queue closed")
)
