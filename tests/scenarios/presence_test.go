package scenarios

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"coursechat/internal/config"
	"coursechat/pkg/types"
	"coursechat/tests/fixtures"
)

const testRedisAddr = "localhost:6379"

func redisAvailable() bool {
	conn, err := net.DialTimeout("tcp", testRedisAddr, 200*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func fetchPresence(t *testing.T, baseURL, courseID string) []string {
	t.Helper()

	resp, err := http.Get(baseURL + "/api/presence?courseId=" + courseID)
	if err != nil {
		t.Fatalf("Presence request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Presence request answered %d", resp.StatusCode)
	}

	var payload struct {
		Room   string   `json:"room"`
		Online []string `json:"online"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Failed to decode presence response: %v", err)
	}
	return payload.Online
}

// TestPresenceEndToEnd runs the full presence path against a real Redis:
// join marks users online, the API lists them, leaving clears them.
func TestPresenceEndToEnd(t *testing.T) {
	if !redisAvailable() {
		t.Skipf("Redis not available at %s, skipping presence scenario", testRedisAddr)
	}

	scenario := fixtures.GenerateCourseScenario(2, 0)
	deployment := fixtures.StartDeployment(t, types.ScopeCourse, func(cfg *config.Config) {
		cfg.Redis.Addr = testRedisAddr
	})

	ctx := context.Background()
	clients := make([]*fixtures.ChatClient, 0, len(scenario.Users))
	for _, user := range scenario.Users {
		token := deployment.MintToken(t, user.ID, time.Hour)
		client := fixtures.NewChatClient(user.ID, token, scenario.CourseID, "", deployment.BaseURL)
		if err := client.Connect(ctx); err != nil {
			t.Fatalf("Failed to connect %s: %v", user.ID, err)
		}
		t.Cleanup(func() { _ = client.Close() })

		// The history frame arrives after the presence join completed.
		if _, err := client.ReceiveHistory(3 * time.Second); err != nil {
			t.Fatalf("Client %s join failed: %v", user.ID, err)
		}
		clients = append(clients, client)
	}

	online := fetchPresence(t, deployment.BaseURL, scenario.CourseID)
	if len(online) != 2 {
		t.Fatalf("Expected 2 users online, got %v", online)
	}
	seen := map[string]bool{}
	for _, id := range online {
		seen[id] = true
	}
	for _, user := range scenario.Users {
		if !seen[user.ID] {
			t.Errorf("User %s missing from presence list %v", user.ID, online)
		}
	}

	// One member leaves; the list shrinks to the other.
	_ = clients[0].Close()
	fixtures.AssertEventuallyTrue(t, func() bool {
		online := fetchPresence(t, deployment.BaseURL, scenario.CourseID)
		return len(online) == 1 && online[0] == scenario.Users[1].ID
	}, 3*time.Second, "presence list never shrank after a member left")
}
