package fixtures

import (
	"context"
	"sync"
	"testing"
	"time"

	"coursechat/pkg/types"
)

// ScenarioRunner boots a deployment for one course scenario and manages its
// clients. Participants are seeded into the users table so enriched
// deployments resolve their names.
type ScenarioRunner struct {
	Deployment *TestDeployment
	Scenario   *CourseScenario
	Scope      types.Scope

	mu      sync.RWMutex
	clients map[string]*ChatClient
}

// ScriptResult summarizes one script run.
type ScriptResult struct {
	Sent     int
	Duration time.Duration
}

// NewScenarioRunner starts a deployment, seeds the scenario's users, and
// registers cleanup of every client it creates.
func NewScenarioRunner(t *testing.T, scenario *CourseScenario, scope types.Scope) *ScenarioRunner {
	t.Helper()

	deployment := StartDeployment(t, scope)
	deployment.SeedUsers(t, scenario.Users)

	runner := &ScenarioRunner{
		Deployment: deployment,
		Scenario:   scenario,
		Scope:      scope,
		clients:    make(map[string]*ChatClient),
	}

	t.Cleanup(runner.CloseAll)

	return runner
}

// CreateClient mints a token and registers a client for the user. videoID is
// empty under course scope. One client per user; tests that need the same
// user twice build the second with NewChatClient directly.
func (sr *ScenarioRunner) CreateClient(t *testing.T, userID, videoID string) *ChatClient {
	t.Helper()

	sr.mu.Lock()
	defer sr.mu.Unlock()

	if _, exists := sr.clients[userID]; exists {
		t.Fatalf("Client %s already exists in this scenario", userID)
	}

	token := sr.Deployment.MintToken(t, userID, time.Hour)
	client := NewChatClient(userID, token, sr.Scenario.CourseID, videoID, sr.Deployment.BaseURL)
	sr.clients[userID] = client

	return client
}

// CreateAllClients registers one client per scenario participant, all in the
// same room.
func (sr *ScenarioRunner) CreateAllClients(t *testing.T, videoID string) []*ChatClient {
	t.Helper()

	clients := make([]*ChatClient, 0, len(sr.Scenario.Users))
	for _, user := range sr.Scenario.Users {
		clients = append(clients, sr.CreateClient(t, user.ID, videoID))
	}
	return clients
}

// Client returns a previously created client.
func (sr *ScenarioRunner) Client(userID string) *ChatClient {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	return sr.clients[userID]
}

// ConnectAll dials every registered client concurrently.
func (sr *ScenarioRunner) ConnectAll(ctx context.Context) error {
	sr.mu.RLock()
	clients := make([]*ChatClient, 0, len(sr.clients))
	for _, client := range sr.clients {
		clients = append(clients, client)
	}
	sr.mu.RUnlock()

	var wg sync.WaitGroup
	errCh := make(chan error, len(clients))

	for _, client := range clients {
		wg.Add(1)
		go func(c *ChatClient) {
			defer wg.Done()
			if err := c.Connect(ctx); err != nil {
				errCh <- err
			}
		}(client)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		return err
	}
	return nil
}

// AwaitHistories consumes the join-time history frame from every connected
// client and returns them keyed by user. After this returns, every client is
// registered in its room and ready for live frames.
func (sr *ScenarioRunner) AwaitHistories(t *testing.T) map[string]*ServerFrame {
	t.Helper()

	sr.mu.RLock()
	clients := make(map[string]*ChatClient, len(sr.clients))
	for id, client := range sr.clients {
		clients[id] = client
	}
	sr.mu.RUnlock()

	histories := make(map[string]*ServerFrame, len(clients))
	for userID, client := range clients {
		if !client.IsConnected() {
			continue
		}
		frame, err := client.ReceiveHistory(3 * time.Second)
		if err != nil {
			t.Fatalf("Client %s never received its history frame: %v", userID, err)
		}
		histories[userID] = frame
	}
	return histories
}

// RunScript replays a scripted conversation, each message from its sender's
// client with the scripted delay in front of it.
func (sr *ScenarioRunner) RunScript(t *testing.T, script *ChatScript) *ScriptResult {
	t.Helper()

	start := time.Now()
	sent := 0

	for i, msg := range script.Messages {
		client := sr.Client(msg.SenderID)
		if client == nil {
			t.Fatalf("Script %q step %d: no client for sender %s", script.Name, i, msg.SenderID)
		}

		if msg.DelayMs > 0 {
			time.Sleep(time.Duration(msg.DelayMs) * time.Millisecond)
		}

		if err := client.SendContent(msg.Content); err != nil {
			t.Fatalf("Script %q step %d: send failed: %v", script.Name, i, err)
		}
		sent++
	}

	return &ScriptResult{Sent: sent, Duration: time.Since(start)}
}

// RoomKey builds the scenario's room key for a video (or the course room
// when videoID is empty).
func (sr *ScenarioRunner) RoomKey(videoID string) types.RoomKey {
	return types.RoomKey{CourseID: sr.Scenario.CourseID, VideoID: videoID}
}

// CloseAll closes every client. Idempotent; registered as test cleanup.
func (sr *ScenarioRunner) CloseAll() {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	for _, client := range sr.clients {
		_ = client.Close()
	}
}
