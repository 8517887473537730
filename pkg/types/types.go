package types

import (
	"time"
)

// Scope selects the room-key shape for a deployment. A process runs with
// exactly one scope; the two shapes are never mixed.
type Scope string

const (
	// ScopeCourse keys rooms by course ID only.
	ScopeCourse Scope = "course"

	// ScopeCourseVideo keys rooms by (course ID, video ID) and enriches
	// outbound payloads with the sender's display name.
	ScopeCourseVideo Scope = "course_video"
)

// Valid reports whether s is one of the defined scopes.
func (s Scope) Valid() bool {
	return s == ScopeCourse || s == ScopeCourseVideo
}

// PerVideo reports whether rooms carry a video ID in this scope.
func (s Scope) PerVideo() bool {
	return s == ScopeCourseVideo
}

// RoomKey identifies a chat room. VideoID is empty under ScopeCourse.
// The zero value is not a valid key.
type RoomKey struct {
	CourseID string
	VideoID  string
}

// String renders the key for logging and presence storage.
func (k RoomKey) String() string {
	if k.VideoID == "" {
		return k.CourseID
	}
	return k.CourseID + "/" + k.VideoID
}

// Message is a persisted chat message. SenderName is never stored; history
// reads attach it from the users table when the deployment scope calls for
// enrichment.
type Message struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	VideoID    string    `json:"video_id,omitempty"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// RoomKey returns the key of the room the message belongs to.
func (m *Message) RoomKey() RoomKey {
	return RoomKey{CourseID: m.CourseID, VideoID: m.VideoID}
}

// Claims carries the verified token fields the service acts on.
type Claims struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
