package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"coursechat/pkg/interfaces"
	"coursechat/pkg/types"
)

func testConfig(t *testing.T, enrich bool) *Config {
	t.Helper()
	return &Config{
		Driver:          DriverSQLite,
		DSN:             filepath.Join(t.TempDir(), "chat.db"),
		MaxConnections:  10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		EnrichHistory:   enrich,
	}
}

func setupManager(t *testing.T, enrich bool) (*Manager, *Config) {
	t.Helper()
	cfg := testConfig(t, enrich)
	m, err := NewManager(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, cfg
}

// seedUser writes a users row through a second connection, the way the
// wider platform owns the table in production.
func seedUser(t *testing.T, cfg *Config, id, fullName string) {
	t.Helper()
	db, err := sql.Open(DriverSQLite, cfg.DSN+sqlitePragmas)
	if err != nil {
		t.Fatalf("open seed connection: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`INSERT INTO users (id, full_name) VALUES (?, ?)`, id, fullName); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func testMessage(room types.RoomKey, id, sender, content string, at time.Time) *types.Message {
	return &types.Message{
		ID:        id,
		CourseID:  room.CourseID,
		VideoID:   room.VideoID,
		SenderID:  sender,
		Content:   content,
		CreatedAt: at,
	}
}

func TestManager_InterfaceCompliance(t *testing.T) {
	var _ interfaces.MessageStore = (*Manager)(nil)
}

func TestNewManager_UnknownDriver(t *testing.T) {
	_, err := NewManager(&Config{Driver: "oracle", DSN: "x"}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestManager_AppendAndHistoryRoundTrip(t *testing.T) {
	m, _ := setupManager(t, false)
	ctx := context.Background()
	room := types.RoomKey{CourseID: "go-101"}
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 3; i++ {
		msg := testMessage(room, fmt.Sprintf("m%d", i), "u1", fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Millisecond))
		if err := m.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	history, err := m.RoomHistory(ctx, room)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	for i, msg := range history {
		if msg.ID != fmt.Sprintf("m%d", i) {
			t.Errorf("position %d: got %s, history not ascending by creation time", i, msg.ID)
		}
		if msg.SenderID != "u1" || msg.Content != fmt.Sprintf("message %d", i) {
			t.Errorf("position %d: fields not preserved: %+v", i, msg)
		}
	}
}

func TestManager_HistoryEmptyRoom(t *testing.T) {
	m, _ := setupManager(t, false)

	history, err := m.RoomHistory(context.Background(), types.RoomKey{CourseID: "empty"})
	if err != nil {
		t.Fatalf("history of empty room should not error: %v", err)
	}
	if history == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(history) != 0 {
		t.Fatalf("expected no messages, got %d", len(history))
	}
}

func TestManager_HistoryRoomIsolation(t *testing.T) {
	m, _ := setupManager(t, false)
	ctx := context.Background()
	now := time.Now().UTC()

	room1 := types.RoomKey{CourseID: "go-101", VideoID: "intro"}
	room2 := types.RoomKey{CourseID: "go-101", VideoID: "closures"}
	if err := m.AppendMessage(ctx, testMessage(room1, "m1", "u1", "in room 1", now)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := m.AppendMessage(ctx, testMessage(room2, "m2", "u2", "in room 2", now)); err != nil {
		t.Fatalf("append: %v", err)
	}

	history, err := m.RoomHistory(ctx, room1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].ID != "m1" {
		t.Errorf("room history leaked across rooms: %+v", history)
	}
}

func TestManager_EnrichedHistoryJoinsSenderNames(t *testing.T) {
	m, cfg := setupManager(t, true)
	ctx := context.Background()
	room := types.RoomKey{CourseID: "go-101", VideoID: "intro"}
	now := time.Now().UTC()

	seedUser(t, cfg, "u1", "Ada Lovelace")

	if err := m.AppendMessage(ctx, testMessage(room, "m1", "u1", "hello", now)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := m.AppendMessage(ctx, testMessage(room, "m2", "ghost", "boo", now.Add(time.Millisecond))); err != nil {
		t.Fatalf("append: %v", err)
	}

	history, err := m.RoomHistory(ctx, room)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].SenderName != "Ada Lovelace" {
		t.Errorf("expected joined sender name, got %q", history[0].SenderName)
	}
	if history[1].SenderName != "" {
		t.Errorf("missing user row should leave sender name empty, got %q", history[1].SenderName)
	}
}

func TestManager_UserDisplayName(t *testing.T) {
	m, cfg := setupManager(t, true)
	ctx := context.Background()

	seedUser(t, cfg, "u1", "Ada Lovelace")

	name, err := m.UserDisplayName(ctx, "u1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if name != "Ada Lovelace" {
		t.Errorf("got %q", name)
	}

	_, err = m.UserDisplayName(ctx, "nobody")
	if err != interfaces.ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestManager_HealthCheck(t *testing.T) {
	m, _ := setupManager(t, false)

	if err := m.HealthCheck(context.Background()); err != nil {
		t.Errorf("health check on fresh store: %v", err)
	}
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	m, _ := setupManager(t, false)

	if err := m.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}

	err := m.AppendMessage(context.Background(), testMessage(types.RoomKey{CourseID: "c"}, "m1", "u1", "late", time.Now()))
	if err != ErrManagerClosed {
		t.Errorf("append after close: got %v, want %v", err, ErrManagerClosed)
	}
}

func TestManager_ConcurrentAppends(t *testing.T) {
	m, _ := setupManager(t, false)
	ctx := context.Background()
	room := types.RoomKey{CourseID: "go-101"}
	base := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			msg := testMessage(room, fmt.Sprintf("m%02d", n), "u1", "concurrent", base.Add(time.Duration(n)*time.Microsecond))
			if err := m.AppendMessage(ctx, msg); err != nil {
				t.Errorf("append %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	history, err := m.RoomHistory(ctx, room)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 20 {
		t.Errorf("expected 20 persisted messages, got %d", len(history))
	}
}
