package presence

import (
	"context"

	"coursechat/pkg/types"
)

// Noop satisfies the tracker interface for deployments without Redis.
// Every operation succeeds and OnlineInRoom reports nobody.
type Noop struct{}

// NewNoop returns the disabled tracker.
func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) Join(ctx context.Context, key types.RoomKey, userID string) error      { return nil }
func (n *Noop) Heartbeat(ctx context.Context, key types.RoomKey, userID string) error { return nil }
func (n *Noop) Leave(ctx context.Context, key types.RoomKey, userID string) error     { return nil }

func (n *Noop) OnlineInRoom(ctx context.Context, key types.RoomKey) ([]string, error) {
	return []string{}, nil
}

func (n *Noop) Close() error { return nil }
