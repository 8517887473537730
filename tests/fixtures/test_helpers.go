package fixtures

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"coursechat/internal/app"
	"coursechat/internal/config"
	"coursechat/pkg/types"
)

// DefaultTestSecret signs every token the fixtures mint.
const DefaultTestSecret = "fixture-signing-secret"

// TestDeployment is a full application instance running against a temporary
// sqlite database, plus the handles tests need to talk to it.
type TestDeployment struct {
	BaseURL string
	Config  *config.Config
	App     *app.Application
	Secret  string

	dbPath string
}

// StartDeployment boots an application on a free port with a fresh database
// and registers its shutdown with the test. Mutators run against the config
// before the application is built; use them to enable Redis or shrink
// timeouts.
func StartDeployment(t *testing.T, scope types.Scope, mutators ...func(*config.Config)) *TestDeployment {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "coursechat.db")

	cfg := config.DefaultConfig()
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = FreePort(t)
	cfg.Database.DSN = dbPath
	cfg.Auth.Secret = DefaultTestSecret
	cfg.Chat.Scope = string(scope)
	for _, mutate := range mutators {
		mutate(cfg)
	}

	application, err := app.NewApplication(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create test application: %v", err)
	}

	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start test application: %v", err)
	}

	deployment := &TestDeployment{
		BaseURL: fmt.Sprintf("http://%s", application.Addr()),
		Config:  cfg,
		App:     application,
		Secret:  cfg.Auth.Secret,
		dbPath:  dbPath,
	}

	if err := waitForServer(deployment.BaseURL, 5*time.Second); err != nil {
		t.Fatalf("Test server never became healthy: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := application.Stop(ctx); err != nil {
			t.Errorf("Test application shutdown failed: %v", err)
		}
	})

	return deployment
}

// MintToken signs a token the deployment's verifier accepts.
func (d *TestDeployment) MintToken(t *testing.T, userID string, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if d.Config.Auth.Issuer != "" {
		claims.Issuer = d.Config.Auth.Issuer
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(d.Secret))
	if err != nil {
		t.Fatalf("Failed to mint token for %s: %v", userID, err)
	}
	return token
}

// MintExpiredToken signs a token whose lifetime already lapsed.
func (d *TestDeployment) MintExpiredToken(t *testing.T, userID string) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(d.Secret))
	if err != nil {
		t.Fatalf("Failed to mint expired token for %s: %v", userID, err)
	}
	return token
}

// MintForeignToken signs a token with the wrong secret. The deployment's
// verifier must reject it.
func (d *TestDeployment) MintForeignToken(t *testing.T, userID string) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret"))
	if err != nil {
		t.Fatalf("Failed to mint foreign token for %s: %v", userID, err)
	}
	return token
}

// SeedUsers inserts participants into the users table so history enrichment
// has names to join. Uses its own connection; WAL mode keeps it compatible
// with the application's pool.
func (d *TestDeployment) SeedUsers(t *testing.T, users []*CourseUser) {
	t.Helper()

	db := d.openDB(t)
	defer func() { _ = db.Close() }()

	for _, user := range users {
		_, err := db.Exec(`INSERT OR REPLACE INTO users (id, full_name) VALUES (?, ?)`, user.ID, user.FullName)
		if err != nil {
			t.Fatalf("Failed to seed user %s: %v", user.ID, err)
		}
	}
}

// MessageCount returns the number of persisted messages for a room, straight
// from the database.
func (d *TestDeployment) MessageCount(t *testing.T, key types.RoomKey) int {
	t.Helper()

	db := d.openDB(t)
	defer func() { _ = db.Close() }()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM messages WHERE course_id = ? AND video_id = ?`,
		key.CourseID, key.VideoID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count messages for room %s: %v", key.String(), err)
	}
	return count
}

// FetchStats reads the deployment's /api/stats endpoint.
func (d *TestDeployment) FetchStats(t *testing.T) (rooms, connections int) {
	t.Helper()

	resp, err := http.Get(d.BaseURL + "/api/stats")
	if err != nil {
		t.Fatalf("Failed to fetch stats: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var stats struct {
		Rooms       int `json:"rooms"`
		Connections int `json:"connections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	return stats.Rooms, stats.Connections
}

func (d *TestDeployment) openDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", d.dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return db
}

// FreePort grabs an ephemeral port and releases it for the deployment to
// bind.
func FreePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port
}

// waitForServer polls /health until the server answers or the timeout lapses.
func waitForServer(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not healthy within %v", baseURL, timeout)
}

// WaitForCondition polls until the condition holds or the timeout lapses.
func WaitForCondition(condition func() bool, timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return false
}

// AssertEventuallyTrue fails the test when the condition never holds within
// the timeout.
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	if !WaitForCondition(condition, timeout, 10*time.Millisecond) {
		t.Fatalf("Condition not met within %v: %s", timeout, message)
	}
}
