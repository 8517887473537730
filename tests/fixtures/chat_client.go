package fixtures

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"coursechat/pkg/types"
)

// ServerFrame is the decoded shape of anything the server sends. History
// frames fill Messages; message frames fill the flat fields.
type ServerFrame struct {
	Type       string           `json:"type"`
	Messages   []*types.Message `json:"messages,omitempty"`
	Content    string           `json:"content,omitempty"`
	CourseID   string           `json:"course_id,omitempty"`
	VideoID    string           `json:"video_id,omitempty"`
	SenderID   string           `json:"sender_id,omitempty"`
	SenderName string           `json:"sender_name,omitempty"`
	CreatedAt  time.Time        `json:"created_at,omitempty"`
}

// ChatClient is a websocket client for driving the chat endpoint in tests.
// A background goroutine collects every inbound frame; receive helpers pull
// from that buffer with timeouts.
type ChatClient struct {
	UserID    string
	Token     string
	CourseID  string
	VideoID   string
	ServerURL string

	conn     *websocket.Conn
	frames   chan *ServerFrame
	errors   chan error
	done     chan struct{}
	doneOnce sync.Once

	mu              sync.RWMutex
	closed          bool
	connected       bool
	handshakeStatus int
}

// NewChatClient builds a client for one room. videoID is empty under course
// scope.
func NewChatClient(userID, token, courseID, videoID, serverURL string) *ChatClient {
	return &ChatClient{
		UserID:    userID,
		Token:     token,
		CourseID:  courseID,
		VideoID:   videoID,
		ServerURL: serverURL,
		frames:    make(chan *ServerFrame, 256),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}
}

// Connect dials the websocket endpoint and starts collecting frames. On a
// rejected handshake the HTTP status is retained for HandshakeStatus.
func (c *ChatClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return fmt.Errorf("client %s already connected", c.UserID)
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	u.Path = "/ws"
	query := u.Query()
	query.Set("token", c.Token)
	query.Set("courseId", c.CourseID)
	if c.VideoID != "" {
		query.Set("videoId", c.VideoID)
	}
	u.RawQuery = query.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil {
		c.handshakeStatus = resp.StatusCode
	}
	if err != nil {
		return fmt.Errorf("failed to connect as %s: %w", c.UserID, err)
	}

	c.conn = conn
	c.connected = true

	go c.readLoop()

	return nil
}

// HandshakeStatus returns the HTTP status of the last dial attempt, or 0 if
// the dial never reached the server.
func (c *ChatClient) HandshakeStatus() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handshakeStatus
}

// readLoop collects frames until the connection dies.
func (c *ChatClient) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		c.doneOnce.Do(func() { close(c.done) })
	}()

	for {
		c.mu.RLock()
		conn := c.conn
		closed := c.closed
		c.mu.RUnlock()

		if closed || conn == nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var frame ServerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			c.mu.RLock()
			stillClosed := c.closed
			c.mu.RUnlock()

			if !stillClosed {
				select {
				case c.errors <- fmt.Errorf("read error for %s: %w", c.UserID, err):
				default:
				}
			}
			return
		}

		select {
		case c.frames <- &frame:
		default:
			select {
			case c.errors <- fmt.Errorf("frame buffer full for %s, dropping", c.UserID):
			default:
			}
		}
	}
}

// SendContent submits one chat message.
func (c *ChatClient) SendContent(text string) error {
	return c.sendJSON(types.InboundMessage{Content: text})
}

// SendRaw writes an arbitrary text frame, for malformed-input tests.
func (c *ChatClient) SendRaw(data []byte) error {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()

	if !connected || conn == nil {
		return fmt.Errorf("client %s not connected", c.UserID)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *ChatClient) sendJSON(v interface{}) error {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()

	if !connected || conn == nil {
		return fmt.Errorf("client %s not connected", c.UserID)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("failed to send as %s: %w", c.UserID, err)
	}
	return nil
}

// ReceiveFrame waits for the next frame of any type.
func (c *ChatClient) ReceiveFrame(timeout time.Duration) (*ServerFrame, error) {
	select {
	case frame := <-c.frames:
		return frame, nil
	case err := <-c.errors:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for frame on %s", c.UserID)
	case <-c.done:
		// Flush anything collected before the disconnect.
		select {
		case frame := <-c.frames:
			return frame, nil
		default:
		}
		return nil, fmt.Errorf("client %s disconnected", c.UserID)
	}
}

// ReceiveHistory waits for the history frame, failing on anything else
// arriving first. The server sends it exactly once, before any live frame.
func (c *ChatClient) ReceiveHistory(timeout time.Duration) (*ServerFrame, error) {
	frame, err := c.ReceiveFrame(timeout)
	if err != nil {
		return nil, err
	}
	if frame.Type != types.PayloadTypeHistory {
		return nil, fmt.Errorf("expected history frame first on %s, got %q", c.UserID, frame.Type)
	}
	return frame, nil
}

// ReceiveChat waits for the next live message frame, skipping a pending
// history frame if one is still buffered.
func (c *ChatClient) ReceiveChat(timeout time.Duration) (*ServerFrame, error) {
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("timeout waiting for chat frame on %s", c.UserID)
		}

		frame, err := c.ReceiveFrame(remaining)
		if err != nil {
			return nil, err
		}
		if frame.Type == types.PayloadTypeMessage {
			return frame, nil
		}
	}
}

// ReceiveChats collects count live message frames.
func (c *ChatClient) ReceiveChats(count int, timeout time.Duration) ([]*ServerFrame, error) {
	frames := make([]*ServerFrame, 0, count)
	deadline := time.Now().Add(timeout)

	for len(frames) < count {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return frames, fmt.Errorf("timeout on %s: received %d/%d chat frames", c.UserID, len(frames), count)
		}

		frame, err := c.ReceiveChat(remaining)
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}

	return frames, nil
}

// ExpectSilence fails when any frame arrives within the window.
func (c *ChatClient) ExpectSilence(window time.Duration) error {
	select {
	case frame := <-c.frames:
		return fmt.Errorf("client %s expected silence, got %q frame", c.UserID, frame.Type)
	case <-time.After(window):
		return nil
	}
}

// DrainFrames empties the buffer and returns what was in it.
func (c *ChatClient) DrainFrames() []*ServerFrame {
	frames := []*ServerFrame{}
	for {
		select {
		case frame := <-c.frames:
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

// GetErrors drains accumulated read errors.
func (c *ChatClient) GetErrors() []error {
	errs := []error{}
	for {
		select {
		case err := <-c.errors:
			errs = append(errs, err)
		default:
			return errs
		}
	}
}

// IsConnected reports whether the read loop is still alive.
func (c *ChatClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && !c.closed
}

// Close sends a close frame and tears the socket down. Safe to call twice.
func (c *ChatClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.conn != nil {
		_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.conn.Close()
	}

	c.doneOnce.Do(func() { close(c.done) })

	return nil
}

// DialExpectReject asserts the handshake fails and returns the HTTP status
// the server answered with.
func DialExpectReject(ctx context.Context, client *ChatClient) (int, error) {
	err := client.Connect(ctx)
	if err == nil {
		_ = client.Close()
		return 0, fmt.Errorf("handshake for %s unexpectedly succeeded", client.UserID)
	}
	if client.HandshakeStatus() == 0 {
		return 0, fmt.Errorf("dial for %s never reached the server: %w", client.UserID, err)
	}
	return client.HandshakeStatus(), nil
}
