package presence

import "errors"

var (
	ErrNoAddress = errors.New("redis address not configured")
)
