package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"coursechat/pkg/interfaces"
	"coursechat/pkg/types"
)

// Default lifecycle settings, applied when the config leaves them zero.
const (
	defaultPingInterval       = 30 * time.Second
	defaultPongTimeout        = 60 * time.Second
	defaultSendBuffer         = 256
	defaultRateLimitPerMinute = 100
	defaultPresenceHeartbeat  = 30 * time.Second
)

// upgrader is shared across requests. All origins are accepted; deployments
// that need origin checks put a proxy in front.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Config carries the handler's tunables. Zero values fall back to defaults.
type Config struct {
	Scope              types.Scope
	PingInterval       time.Duration
	PongTimeout        time.Duration
	SendBuffer         int
	RateLimitPerMinute int
	MaxContentBytes    int
	PresenceHeartbeat  time.Duration
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = defaultPongTimeout
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = defaultRateLimitPerMinute
	}
	if c.MaxContentBytes <= 0 {
		c.MaxContentBytes = types.MaxContentBytes
	}
	if c.PresenceHeartbeat <= 0 {
		c.PresenceHeartbeat = defaultPresenceHeartbeat
	}
	return c
}

// Handler upgrades chat connections and runs their lifecycle: authenticate,
// join a room, replay history, then read messages until the peer goes away.
type Handler struct {
	cfg      Config
	registry interfaces.RoomRegistry
	store    interfaces.MessageStore
	verifier interfaces.TokenVerifier
	engine   interfaces.Broadcaster
	presence interfaces.PresenceTracker
	names    interfaces.NameResolver
	limiter  *RateLimiter
	logger   zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHandler wires the handler's collaborators. names may be nil; sender
// names are then never resolved and live payloads omit them (course scope).
func NewHandler(
	cfg Config,
	registry interfaces.RoomRegistry,
	store interfaces.MessageStore,
	verifier interfaces.TokenVerifier,
	engine interfaces.Broadcaster,
	presence interfaces.PresenceTracker,
	names interfaces.NameResolver,
	logger zerolog.Logger,
) *Handler {
	cfg = cfg.withDefaults()
	h := &Handler{
		cfg:      cfg,
		registry: registry,
		store:    store,
		verifier: verifier,
		engine:   engine,
		presence: presence,
		names:    names,
		limiter:  NewRateLimiter(cfg.RateLimitPerMinute),
		logger:   logger.With().Str("component", "websocket").Logger(),
		stop:     make(chan struct{}),
	}
	go h.janitor()
	return h
}

// Shutdown stops the handler's background maintenance. Safe to call more
// than once. Open connections are closed by the registry owner, not here.
func (h *Handler) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// janitor evicts stale rate-limiter entries while the handler lives.
func (h *Handler) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.limiter.Cleanup()
		case <-h.stop:
			return
		}
	}
}

// HandleWebSocket validates the handshake, upgrades the socket, and runs the
// connection until it closes. Validation failures are answered with plain
// HTTP statuses before the upgrade; nothing is registered for a rejected
// request.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	token := query.Get("token")
	key := types.RoomKey{
		CourseID: query.Get("courseId"),
		VideoID:  query.Get("videoId"),
	}

	if err := key.Validate(h.cfg.Scope); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("room", key.String()).
			Msg("handshake rejected")
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	// Resolved once per connection; live payloads reuse it for every
	// message this sender produces.
	senderName := ""
	if h.cfg.Scope.PerVideo() && h.names != nil {
		senderName, err = h.names.DisplayName(r.Context(), claims.UserID)
		if err != nil {
			h.logger.Warn().
				Err(err).
				Str("user_id", claims.UserID).
				Msg("display name lookup failed, continuing without")
			senderName = ""
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade writes its own HTTP error response.
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	wsConn := NewConnection(conn, uuid.New().String(), claims.UserID, senderName, key, h.cfg.SendBuffer)

	if err := h.registry.Register(key, wsConn); err != nil {
		h.logger.Error().
			Err(err).
			Str("user_id", claims.UserID).
			Str("room", key.String()).
			Msg("connection registration failed")
		_ = wsConn.Close()
		return
	}

	if err := h.presence.Join(r.Context(), key, claims.UserID); err != nil {
		h.logger.Warn().
			Err(err).
			Str("user_id", claims.UserID).
			Str("room", key.String()).
			Msg("presence join failed")
	}

	h.logger.Info().
		Str("conn_id", wsConn.GetID()).
		Str("user_id", claims.UserID).
		Str("room", key.String()).
		Msg("connection joined")

	// History goes out before the read loop starts so the frame is
	// enqueued ahead of anything this client's own messages trigger.
	h.sendHistory(wsConn)

	h.readLoop(wsConn)
}

// sendHistory replays the room's persisted messages to the joining
// connection as a single frame. A failed read skips the replay; the
// connection stays usable.
func (h *Handler) sendHistory(conn *Connection) {
	messages, err := h.store.RoomHistory(conn.ctx, conn.GetRoomKey())
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("room", conn.GetRoomKey().String()).
			Msg("history read failed, skipping replay")
		return
	}

	if err := conn.WriteJSON(types.NewHistoryPayload(messages)); err != nil {
		h.logger.Debug().
			Err(err).
			Str("conn_id", conn.GetID()).
			Msg("history delivery failed")
	}
}

// readLoop owns all reads from the socket. It returns when the peer closes,
// the read deadline lapses, or the connection is torn down.
func (h *Handler) readLoop(conn *Connection) {
	defer h.teardown(conn)

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout)); err != nil {
		h.logger.Warn().Err(err).Str("conn_id", conn.GetID()).Msg("failed to arm read deadline")
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})

	go h.heartbeat(conn)

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug().
					Err(err).
					Str("conn_id", conn.GetID()).
					Msg("read loop ended")
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		h.ingest(conn, data)
	}
}

// ingest runs one inbound frame through validate, rate limit, persist, and
// broadcast. Malformed frames are dropped without acknowledgement; only
// rate-limit and persistence failures leave a trace in the log.
func (h *Handler) ingest(conn *Connection, data []byte) {
	var inbound types.InboundMessage
	if err := json.Unmarshal(data, &inbound); err != nil {
		return
	}
	if err := types.ValidateContent(inbound.Content, h.cfg.MaxContentBytes); err != nil {
		return
	}

	if !h.limiter.Allow(conn.GetUserID()) {
		h.logger.Warn().
			Str("user_id", conn.GetUserID()).
			Str("room", conn.GetRoomKey().String()).
			Msg("rate limit exceeded, message dropped")
		return
	}

	key := conn.GetRoomKey()
	msg := &types.Message{
		ID:         uuid.New().String(),
		CourseID:   key.CourseID,
		VideoID:    key.VideoID,
		SenderID:   conn.GetUserID(),
		SenderName: conn.GetSenderName(),
		Content:    inbound.Content,
		CreatedAt:  time.Now().UTC(),
	}

	// Persist-then-broadcast. A failed insert drops the message outright;
	// nobody, including the sender, sees it.
	if err := h.store.AppendMessage(context.Background(), msg); err != nil {
		h.logger.Error().
			Err(err).
			Str("message_id", msg.ID).
			Str("user_id", msg.SenderID).
			Str("room", key.String()).
			Msg("message persistence failed, dropping")
		return
	}

	h.engine.Broadcast(key, types.NewMessagePayload(msg))
}

// heartbeat pings the peer and refreshes presence until the connection
// closes. Control frames may be written concurrently with the writer
// goroutine; gorilla permits that.
func (h *Handler) heartbeat(conn *Connection) {
	ping := time.NewTicker(h.cfg.PingInterval)
	defer ping.Stop()
	liveness := time.NewTicker(h.cfg.PresenceHeartbeat)
	defer liveness.Stop()

	for {
		select {
		case <-ping.C:
			if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-liveness.C:
			if err := h.presence.Heartbeat(conn.ctx, conn.GetRoomKey(), conn.GetUserID()); err != nil {
				h.logger.Warn().
					Err(err).
					Str("user_id", conn.GetUserID()).
					Msg("presence heartbeat failed")
			}
		case <-conn.ctx.Done():
			return
		}
	}
}

// teardown releases everything the connection holds. Every step is
// idempotent, so racing close paths are harmless.
func (h *Handler) teardown(conn *Connection) {
	key := conn.GetRoomKey()
	h.registry.Deregister(key, conn)

	if err := h.presence.Leave(context.Background(), key, conn.GetUserID()); err != nil {
		h.logger.Warn().
			Err(err).
			Str("user_id", conn.GetUserID()).
			Msg("presence leave failed")
	}

	_ = conn.Close()

	h.logger.Info().
		Str("conn_id", conn.GetID()).
		Str("user_id", conn.GetUserID()).
		Str("room", key.String()).
		Msg("connection left")
}
