package registry

import "errors"

var (
	ErrNilConnection = errors.New("connection cannot be nil")
	ErrAlreadyJoined = errors.New("connection already joined to another room")
)
