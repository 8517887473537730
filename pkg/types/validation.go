package types

import "regexp"

// Regex compiled once at package initialization.
var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxContentBytes caps a single message body regardless of configuration.
const MaxContentBytes = 65536

// IsValidID checks course, video, and user identifiers. IDs are 1-50
// characters, alphanumeric plus underscore and hyphen.
func IsValidID(id string) bool {
	if len(id) < 1 || len(id) > 50 {
		return false
	}
	return idRegex.MatchString(id)
}

// Validate checks the key against the deployment scope. Course-scoped keys
// must not carry a video ID; course_video keys must.
func (k RoomKey) Validate(scope Scope) error {
	if !IsValidID(k.CourseID) {
		return ErrInvalidID
	}
	switch {
	case scope.PerVideo() && k.VideoID == "":
		return ErrMissingVideoID
	case scope.PerVideo():
		if !IsValidID(k.VideoID) {
			return ErrInvalidID
		}
	case k.VideoID != "":
		return ErrUnexpectedVideo
	}
	return nil
}

// ValidateContent checks an inbound message body against the deployment's
// size cap. A non-positive maxBytes applies MaxContentBytes; a larger one is
// clamped to it. Callers drop invalid payloads without acknowledgement.
func ValidateContent(content string, maxBytes int) error {
	if content == "" {
		return ErrEmptyContent
	}
	if maxBytes <= 0 || maxBytes > MaxContentBytes {
		maxBytes = MaxContentBytes
	}
	if len(content) > maxBytes {
		return ErrContentTooLarge
	}
	return nil
}
