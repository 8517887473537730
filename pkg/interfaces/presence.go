package interfaces

import (
	"context"

	"coursechat/pkg/types"
)

// PresenceTracker records which users are online in which room. Presence is
// advisory; failures are logged by callers and never interrupt the chat path.
type PresenceTracker interface {
	// Join marks a user online in a room.
	Join(ctx context.Context, key types.RoomKey, userID string) error

	// Heartbeat refreshes the user's liveness while connected.
	Heartbeat(ctx context.Context, key types.RoomKey, userID string) error

	// Leave clears the user from the room and records last-seen.
	Leave(ctx context.Context, key types.RoomKey, userID string) error

	// OnlineInRoom lists user IDs currently online in the room.
	OnlineInRoom(ctx context.Context, key types.RoomKey) ([]string, error)

	// Close releases the underlying client.
	Close() error
}
