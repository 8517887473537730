package websocket

import (
	"sync"
	"time"
)

// RateLimiter caps how many messages a sender may submit per minute, across
// all of that sender's connections.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	senders map[string]*senderWindow
}

// senderWindow tracks one sender's current minute window.
type senderWindow struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a limiter allowing perMinute messages per sender.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		limit:   perMinute,
		senders: make(map[string]*senderWindow),
	}
}

// Allow reports whether the sender may submit another message. The window
// resets a minute after its first message.
func (rl *RateLimiter) Allow(userID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	window, exists := rl.senders[userID]
	if !exists {
		rl.senders[userID] = &senderWindow{count: 1, windowStart: now}
		return true
	}

	if now.Sub(window.windowStart) >= time.Minute {
		window.count = 1
		window.windowStart = now
		return true
	}

	if window.count >= rl.limit {
		return false
	}

	window.count++
	return true
}

// Cleanup drops senders idle for five windows so the map does not grow with
// every user ever seen. Called periodically by the handler's janitor.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for userID, window := range rl.senders {
		if now.Sub(window.windowStart) > 5*time.Minute {
			delete(rl.senders, userID)
		}
	}
}
