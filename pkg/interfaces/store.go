package interfaces

import (
	"context"

	"coursechat/pkg/types"
)

// MessageStore handles all persistence behind the chat service.
type MessageStore interface {
	// AppendMessage persists a message. The caller broadcasts only after
	// this returns nil.
	AppendMessage(ctx context.Context, message *types.Message) error

	// RoomHistory returns every message persisted for the room, ordered
	// ascending by creation time. An empty room yields an empty slice.
	RoomHistory(ctx context.Context, key types.RoomKey) ([]*types.Message, error)

	// UserDisplayName resolves a user's full name for message enrichment.
	// Returns ErrUserNotFound when there is no such user row.
	UserDisplayName(ctx context.Context, userID string) (string, error)

	// HealthCheck verifies connectivity and basic operations.
	HealthCheck(ctx context.Context) error

	// Close drains pending writes and releases the connection pool.
	Close() error
}
