package store

import "errors"

var (
	ErrManagerClosed = errors.New("message store is closed")
	ErrWriteTimeout  = errors.New("write operation timed out")
	ErrUnknownDriver = errors.New("unknown database driver")
)
