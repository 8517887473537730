package presence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursechat/pkg/types"
)

const testRedisAddr = "localhost:6379"

// setupTracker connects to a local Redis or skips the test. Keys written by
// the test are removed on cleanup.
func setupTracker(t *testing.T) *Tracker {
	t.Helper()

	probe := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := probe.Ping(ctx).Err(); err != nil {
		_ = probe.Close()
		t.Skipf("redis not available at %s: %v", testRedisAddr, err)
	}
	_ = probe.Close()

	tracker, err := NewTracker(&Config{Addr: testRedisAddr, TTL: 2 * time.Second}, zerolog.Nop())
	require.NoError(t, err)

	t.Cleanup(func() {
		cleanupKeys(t, tracker.rdb, userKeyPrefix+"test-*")
		cleanupKeys(t, tracker.rdb, roomKeyPrefix+"test-*")
		cleanupKeys(t, tracker.rdb, lastSeenKeyPrefix+"test-*")
		_ = tracker.Close()
	})
	return tracker
}

func cleanupKeys(t *testing.T, client *redis.Client, pattern string) {
	t.Helper()
	ctx := context.Background()
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

func testRoom(t *testing.T) types.RoomKey {
	return types.RoomKey{CourseID: fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())}
}

func TestNewTracker_RequiresAddress(t *testing.T) {
	_, err := NewTracker(&Config{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestTracker_JoinAndOnline(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()
	room := testRoom(t)

	require.NoError(t, tracker.Join(ctx, room, "test-alice"))
	require.NoError(t, tracker.Join(ctx, room, "test-bob"))

	online, err := tracker.OnlineInRoom(ctx, room)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"test-alice", "test-bob"}, online)
}

func TestTracker_LeaveRemovesFromRoom(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()
	room := testRoom(t)

	require.NoError(t, tracker.Join(ctx, room, "test-alice"))
	require.NoError(t, tracker.Leave(ctx, room, "test-alice"))

	online, err := tracker.OnlineInRoom(ctx, room)
	require.NoError(t, err)
	assert.Empty(t, online)

	seen, err := tracker.LastSeen(ctx, "test-alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), seen, 5*time.Second)
}

func TestTracker_ExpiredLivenessIsCleaned(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()
	room := testRoom(t)

	require.NoError(t, tracker.Join(ctx, room, "test-ghost"))

	// Force the liveness key to lapse instead of waiting out the TTL.
	require.NoError(t, tracker.rdb.Del(ctx, userKeyPrefix+"test-ghost").Err())

	online, err := tracker.OnlineInRoom(ctx, room)
	require.NoError(t, err)
	assert.Empty(t, online)

	// The stale set entry is gone too.
	members, err := tracker.rdb.SMembers(ctx, roomKeyPrefix+room.String()).Result()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestTracker_HeartbeatKeepsUserOnline(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()
	room := testRoom(t)

	require.NoError(t, tracker.Join(ctx, room, "test-alice"))
	require.NoError(t, tracker.Heartbeat(ctx, room, "test-alice"))

	ttl, err := tracker.rdb.TTL(ctx, userKeyPrefix+"test-alice").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestTracker_LastSeenUnknownUser(t *testing.T) {
	tracker := setupTracker(t)

	seen, err := tracker.LastSeen(context.Background(), "test-never-seen")
	require.NoError(t, err)
	assert.True(t, seen.IsZero())
}

func TestNoop_AllOperationsSucceed(t *testing.T) {
	n := NewNoop()
	ctx := context.Background()
	room := types.RoomKey{CourseID: "go-101"}

	assert.NoError(t, n.Join(ctx, room, "u1"))
	assert.NoError(t, n.Heartbeat(ctx, room, "u1"))
	assert.NoError(t, n.Leave(ctx, room, "u1"))

	online, err := n.OnlineInRoom(ctx, room)
	assert.NoError(t, err)
	assert.Empty(t, online)

	assert.NoError(t, n.Close())
}
