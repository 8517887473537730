package auth

import "errors"

// Verification errors. All of them reject the handshake before any room
// state is touched.
var (
	ErrEmptySecret    = errors.New("signing secret cannot be empty")
	ErrTokenMissing   = errors.New("token missing")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
)
