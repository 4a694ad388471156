package engine

import "errors"

// Sentinel kinds for engine errors.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEventNotFound   = errors.New("event not found")
	ErrPersist         = errors.New("persist failed")
)
