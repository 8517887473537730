package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"coursechat/pkg/types"
)

// Key layout:
//
//	pres:user:{userID}  = "1" (EX ttl) — liveness, refreshed by heartbeats
//	pres:room:{roomKey} = set of userIDs, stale entries cleaned on read
//	lastseen:{userID}   = RFC3339 timestamp, written on leave
const (
	userKeyPrefix     = "pres:user:"
	roomKeyPrefix     = "pres:room:"
	lastSeenKeyPrefix = "lastseen:"
)

// Config holds the Redis presence settings.
type Config struct {
	Addr     string        `json:"addr"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	TTL      time.Duration `json:"ttl"`
}

// Tracker records room presence in Redis. Presence is advisory: the chat
// path calls it fire-and-forget and logs failures without acting on them,
// so a Redis outage degrades the presence API, never message delivery.
type Tracker struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewTracker connects to Redis and verifies reachability before returning.
func NewTracker(cfg *Config, logger zerolog.Logger) (*Tracker, error) {
	if cfg.Addr == "" {
		return nil, ErrNoAddress
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 60 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Tracker{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "presence").Logger(),
	}, nil
}

// Join marks the user online and adds them to the room set.
func (t *Tracker) Join(ctx context.Context, key types.RoomKey, userID string) error {
	if err := t.rdb.SAdd(ctx, roomKeyPrefix+key.String(), userID).Err(); err != nil {
		return fmt.Errorf("failed to add user to room set: %w", err)
	}
	if err := t.rdb.Set(ctx, userKeyPrefix+userID, "1", t.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark user online: %w", err)
	}
	return nil
}

// Heartbeat refreshes the user's liveness key. Missing a heartbeat lets the
// key expire and the user ages out of OnlineInRoom on the next read.
func (t *Tracker) Heartbeat(ctx context.Context, key types.RoomKey, userID string) error {
	if err := t.rdb.Set(ctx, userKeyPrefix+userID, "1", t.ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh liveness: %w", err)
	}
	return nil
}

// Leave removes the user from the room set and records when they were last
// seen. The liveness key is left to expire; the same user may still be
// online in the room through another connection.
func (t *Tracker) Leave(ctx context.Context, key types.RoomKey, userID string) error {
	if err := t.rdb.SRem(ctx, roomKeyPrefix+key.String(), userID).Err(); err != nil {
		return fmt.Errorf("failed to remove user from room set: %w", err)
	}
	if err := t.rdb.Set(ctx, lastSeenKeyPrefix+userID, time.Now().UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("failed to record last seen: %w", err)
	}
	return nil
}

// OnlineInRoom lists users in the room set whose liveness key still exists.
// Stale set entries found along the way are removed.
func (t *Tracker) OnlineInRoom(ctx context.Context, key types.RoomKey) ([]string, error) {
	roomKey := roomKeyPrefix + key.String()

	users, err := t.rdb.SMembers(ctx, roomKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read room set: %w", err)
	}

	online := make([]string, 0, len(users))
	for _, userID := range users {
		exists, err := t.rdb.Exists(ctx, userKeyPrefix+userID).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check liveness: %w", err)
		}
		if exists == 1 {
			online = append(online, userID)
			continue
		}
		if err := t.rdb.SRem(ctx, roomKey, userID).Err(); err != nil {
			t.logger.Warn().
				Err(err).
				Str("room", key.String()).
				Str("user_id", userID).
				Msg("failed to clean stale presence entry")
		}
	}
	return online, nil
}

// LastSeen returns when the user last left a room, or the zero time when
// the user has never been tracked.
func (t *Tracker) LastSeen(ctx context.Context, userID string) (time.Time, error) {
	raw, err := t.rdb.Get(ctx, lastSeenKeyPrefix+userID).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read last seen: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed last seen value: %w", err)
	}
	return ts, nil
}

// Close releases the Redis client.
func (t *Tracker) Close() error {
	return t.rdb.Close()
}
