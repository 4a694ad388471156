package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrBatchFailed   = errors.New("batch write failed")
	ErrBatchTooLarge = errors.New("batch exceeds write limit")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrInvalidRecord = errors.New("invalid record")
)
