package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestScope_Valid(t *testing.T) {
	if !ScopeCourse.Valid() || !ScopeCourseVideo.Valid() {
		t.Error("defined scopes should be valid")
	}
	if Scope("global").Valid() {
		t.Error("unknown scope should be invalid")
	}
	if ScopeCourse.PerVideo() {
		t.Error("course scope should not be per-video")
	}
	if !ScopeCourseVideo.PerVideo() {
		t.Error("course_video scope should be per-video")
	}
}

func TestRoomKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  RoomKey
		want string
	}{
		{"course only", RoomKey{CourseID: "go-101"}, "go-101"},
		{"course and video", RoomKey{CourseID: "go-101", VideoID: "intro"}, "go-101/intro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoomKey_Validate(t *testing.T) {
	tests := []struct {
		name    string
		key     RoomKey
		scope   Scope
		wantErr error
	}{
		{"valid course key", RoomKey{CourseID: "go-101"}, ScopeCourse, nil},
		{"valid course_video key", RoomKey{CourseID: "go-101", VideoID: "lesson_2"}, ScopeCourseVideo, nil},
		{"empty course ID", RoomKey{}, ScopeCourse, ErrInvalidID},
		{"course ID with spaces", RoomKey{CourseID: "go 101"}, ScopeCourse, ErrInvalidID},
		{"course ID too long", RoomKey{CourseID: strings.Repeat("a", 51)}, ScopeCourse, ErrInvalidID},
		{"missing video ID", RoomKey{CourseID: "go-101"}, ScopeCourseVideo, ErrMissingVideoID},
		{"invalid video ID", RoomKey{CourseID: "go-101", VideoID: "bad video"}, ScopeCourseVideo, ErrInvalidID},
		{"video ID in course scope", RoomKey{CourseID: "go-101", VideoID: "intro"}, ScopeCourse, ErrUnexpectedVideo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.key.Validate(tt.scope); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateContent(t *testing.T) {
	if err := ValidateContent("hello", 0); err != nil {
		t.Errorf("valid content rejected: %v", err)
	}
	if err := ValidateContent("", 0); err != ErrEmptyContent {
		t.Errorf("empty content: got %v, want %v", err, ErrEmptyContent)
	}
	if err := ValidateContent(strings.Repeat("x", 65537), 0); err != ErrContentTooLarge {
		t.Errorf("oversized content: got %v, want %v", err, ErrContentTooLarge)
	}
	// Exactly at the limit is allowed.
	if err := ValidateContent(strings.Repeat("x", 65536), 0); err != nil {
		t.Errorf("content at limit rejected: %v", err)
	}
}

func TestValidateContent_ConfiguredCap(t *testing.T) {
	if err := ValidateContent("hello", 5); err != nil {
		t.Errorf("content at configured cap rejected: %v", err)
	}
	if err := ValidateContent("hello!", 5); err != ErrContentTooLarge {
		t.Errorf("content above configured cap: got %v, want %v", err, ErrContentTooLarge)
	}
	// A cap above the hard limit clamps to it.
	if err := ValidateContent(strings.Repeat("x", 65537), 1<<20); err != ErrContentTooLarge {
		t.Errorf("hard limit not enforced: got %v, want %v", err, ErrContentTooLarge)
	}
}

func TestMessage_RoomKey(t *testing.T) {
	m := &Message{CourseID: "go-101", VideoID: "intro"}
	want := RoomKey{CourseID: "go-101", VideoID: "intro"}
	if got := m.RoomKey(); got != want {
		t.Errorf("RoomKey() = %v, want %v", got, want)
	}
}

func TestHistoryPayload_EmptyMarshalsAsArray(t *testing.T) {
	payload := NewHistoryPayload(nil)

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"messages":[]`) {
		t.Errorf("empty history should serialize as [], got %s", data)
	}
	if !strings.Contains(string(data), `"type":"history"`) {
		t.Errorf("history payload missing type tag: %s", data)
	}
}

func TestMessagePayload_OptionalFieldsOmitted(t *testing.T) {
	m := &Message{
		ID:        "m1",
		CourseID:  "go-101",
		SenderID:  "u1",
		Content:   "hi",
		CreatedAt: time.Now().UTC(),
	}
	payload := NewMessagePayload(m)

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if strings.Contains(s, "video_id") {
		t.Errorf("video_id should be omitted when empty: %s", s)
	}
	if strings.Contains(s, "sender_name") {
		t.Errorf("sender_name should be omitted when empty: %s", s)
	}
	if !strings.Contains(s, `"type":"message"`) {
		t.Errorf("message payload missing type tag: %s", s)
	}
	if payload.CreatedAt.IsZero() {
		t.Error("payload timestamp should be assigned at construction")
	}
}

func TestMessagePayload_EnrichedFieldsPresent(t *testing.T) {
	m := &Message{
		ID:         "m1",
		CourseID:   "go-101",
		VideoID:    "intro",
		SenderID:   "u1",
		SenderName: "Ada Lovelace",
		Content:    "hi",
		CreatedAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(NewMessagePayload(m))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"video_id":"intro"`) {
		t.Errorf("video_id missing: %s", s)
	}
	if !strings.Contains(s, `"sender_name":"Ada Lovelace"`) {
		t.Errorf("sender_name missing: %s", s)
	}
}

func TestInboundMessage_IgnoresUnknownFields(t *testing.T) {
	var in InboundMessage
	raw := `{"content":"hello","clientTag":"x","ts":12345}`

	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.Content != "hello" {
		t.Errorf("Content = %q, want %q", in.Content, "hello")
	}
}
