package natsub

import "errors"

// Sentinel kinds for subscriber errors.
var (
	ErrConnect    = errors.New("nats connect failed")
	ErrSubscribe  = errors.New("nats subscribe failed")
	ErrBadMessage = errors.New("malformed mutation message")
)
