package interfaces

import "coursechat/pkg/types"

// Connection is a client connection as the registry and broadcast layers see
// it. Implementations serialize all socket writes through a single writer.
type Connection interface {
	// WriteJSON enqueues a JSON frame for the client. It never blocks on
	// the socket; a closed connection or full send buffer returns an error
	// the caller treats as a skip.
	WriteJSON(v interface{}) error

	// Close tears the connection down. Safe to call more than once.
	Close() error

	// IsOpen reports whether the connection still accepts frames.
	IsOpen() bool

	// GetID returns the connection's unique ID. Distinct connections from
	// the same user have distinct IDs.
	GetID() string

	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string

	// GetSenderName returns the display name resolved at join time, or ""
	// when the deployment does not enrich messages or the lookup failed.
	GetSenderName() string

	// GetRoomKey returns the room this connection joined.
	GetRoomKey() types.RoomKey
}
