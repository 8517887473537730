package interfaces

import "coursechat/pkg/types"

// RoomRegistry tracks which connections belong to which room. Membership is
// by connection identity; a user with two tabs open holds two entries.
type RoomRegistry interface {
	// Register adds a connection to a room, creating the room on first
	// member. Registering the same connection in the same room twice is a
	// no-op.
	Register(key types.RoomKey, conn Connection) error

	// Deregister removes a connection from a room and drops the room when
	// it empties. Unknown rooms and already-removed connections are no-ops.
	Deregister(key types.RoomKey, conn Connection)

	// MembersOf returns a snapshot of the room's connections. Unknown
	// rooms yield an empty slice.
	MembersOf(key types.RoomKey) []Connection

	// Counts reports the number of rooms and total connections.
	Counts() (rooms int, connections int)
}

// Broadcaster fans a payload out to every open member of a room.
type Broadcaster interface {
	Broadcast(key types.RoomKey, payload interface{})
}
