package types

import "time"

// Outbound payload type tags. These two variants are the entire
// server-to-client surface.
const (
	PayloadTypeHistory = "history"
	PayloadTypeMessage = "message"
)

// InboundMessage is the single client-to-server payload variant. Unknown
// fields are ignored on decode.
type InboundMessage struct {
	Content string `json:"content"`
}

// HistoryPayload replays a room's persisted messages to a joining
// connection, ordered ascending by creation time. Messages is never nil so
// an empty history serializes as [].
type HistoryPayload struct {
	Type     string     `json:"type"`
	Messages []*Message `json:"messages"`
}

// NewHistoryPayload builds the history frame for a joining connection.
func NewHistoryPayload(messages []*Message) *HistoryPayload {
	if messages == nil {
		messages = []*Message{}
	}
	return &HistoryPayload{
		Type:     PayloadTypeHistory,
		Messages: messages,
	}
}

// MessagePayload is the live broadcast frame. CreatedAt is assigned when the
// payload is built, after the row has been persisted; it is close to but not
// read back from the stored timestamp.
type MessagePayload struct {
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	CourseID   string    `json:"course_id"`
	VideoID    string    `json:"video_id,omitempty"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewMessagePayload builds the broadcast frame for a persisted message.
func NewMessagePayload(m *Message) *MessagePayload {
	return &MessagePayload{
		Type:       PayloadTypeMessage,
		Content:    m.Content,
		CourseID:   m.CourseID,
		VideoID:    m.VideoID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		CreatedAt:  time.Now().UTC(),
	}
}
