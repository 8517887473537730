package interfaces_test

import (
	"context"
	"testing"

	"coursechat/pkg/interfaces"
	"coursechat/pkg/types"
)

// Mock implementations for compile-time contract checks

type mockConnection struct{}

func (m *mockConnection) WriteJSON(v interface{}) error { return nil }
func (m *mockConnection) Close() error                  { return nil }
func (m *mockConnection) IsOpen() bool                  { return true }
func (m *mockConnection) GetID() string                 { return "" }
func (m *mockConnection) GetUserID() string             { return "" }
func (m *mockConnection) GetSenderName() string         { return "" }
func (m *mockConnection) GetRoomKey() types.RoomKey     { return types.RoomKey{} }

type mockStore struct{}

func (m *mockStore) AppendMessage(ctx context.Context, message *types.Message) error { return nil }
func (m *mockStore) RoomHistory(ctx context.Context, key types.RoomKey) ([]*types.Message, error) {
	return nil, nil
}
func (m *mockStore) UserDisplayName(ctx context.Context, userID string) (string, error) {
	return "", nil
}
func (m *mockStore) HealthCheck(ctx context.Context) error { return nil }
func (m *mockStore) Close() error                          { return nil }

type mockVerifier struct{}

func (m *mockVerifier) Verify(token string) (*types.Claims, error) { return nil, nil }

type mockRegistry struct{}

func (m *mockRegistry) Register(key types.RoomKey, conn interfaces.Connection) error { return nil }
func (m *mockRegistry) Deregister(key types.RoomKey, conn interfaces.Connection)     {}
func (m *mockRegistry) MembersOf(key types.RoomKey) []interfaces.Connection          { return nil }
func (m *mockRegistry) Counts() (int, int)                                           { return 0, 0 }

type mockTracker struct{}

func (m *mockTracker) Join(ctx context.Context, key types.RoomKey, userID string) error { return nil }
func (m *mockTracker) Heartbeat(ctx context.Context, key types.RoomKey, userID string) error {
	return nil
}
func (m *mockTracker) Leave(ctx context.Context, key types.RoomKey, userID string) error { return nil }
func (m *mockTracker) OnlineInRoom(ctx context.Context, key types.RoomKey) ([]string, error) {
	return nil, nil
}
func (m *mockTracker) Close() error { return nil }

func TestConnection_InterfaceContract(t *testing.T) {
	var conn interfaces.Connection = &mockConnection{}

	_ = conn.WriteJSON(struct{}{})
	_ = conn.Close()
	_ = conn.IsOpen()
	_ = conn.GetID()
	_ = conn.GetUserID()
	_ = conn.GetSenderName()
	_ = conn.GetRoomKey()
}

func TestMessageStore_InterfaceContract(t *testing.T) {
	var store interfaces.MessageStore = &mockStore{}
	ctx := context.Background()

	_ = store.AppendMessage(ctx, &types.Message{})
	_, _ = store.RoomHistory(ctx, types.RoomKey{CourseID: "c1"})
	_, _ = store.UserDisplayName(ctx, "u1")
	_ = store.HealthCheck(ctx)
	_ = store.Close()
}

func TestTokenVerifier_InterfaceContract(t *testing.T) {
	var verifier interfaces.TokenVerifier = &mockVerifier{}
	_, _ = verifier.Verify("token")
}

func TestRoomRegistry_InterfaceContract(t *testing.T) {
	var registry interfaces.RoomRegistry = &mockRegistry{}
	key := types.RoomKey{CourseID: "c1"}
	conn := &mockConnection{}

	_ = registry.Register(key, conn)
	registry.Deregister(key, conn)
	_ = registry.MembersOf(key)
	_, _ = registry.Counts()
}

func TestPresenceTracker_InterfaceContract(t *testing.T) {
	var tracker interfaces.PresenceTracker = &mockTracker{}
	ctx := context.Background()
	key := types.RoomKey{CourseID: "c1"}

	_ = tracker.Join(ctx, key, "u1")
	_ = tracker.Heartbeat(ctx, key, "u1")
	_ = tracker.Leave(ctx, key, "u1")
	_, _ = tracker.OnlineInRoom(ctx, key)
	_ = tracker.Close()
}
