package types

import "errors"

var (
	ErrInvalidID       = errors.New("identifier must be 1-50 characters, alphanumeric plus underscore/hyphen")
	ErrMissingVideoID  = errors.New("video ID required in course_video scope")
	ErrUnexpectedVideo = errors.New("video ID not allowed in course scope")
	ErrEmptyContent    = errors.New("message content cannot be empty")
	ErrContentTooLarge = errors.New("message content exceeds 64KB limit")
)
