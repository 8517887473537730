package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"coursechat/internal/api"
	"coursechat/internal/auth"
	"coursechat/internal/broadcast"
	"coursechat/internal/config"
	"coursechat/internal/presence"
	"coursechat/internal/registry"
	"coursechat/internal/store"
	"coursechat/internal/users"
	"coursechat/internal/websocket"
	"coursechat/pkg/interfaces"
	"coursechat/pkg/types"
)

// Application wires and owns every component of the chat service. Nothing
// here is global: each component receives its collaborators explicitly, in
// dependency order, and is torn down in reverse.
type Application struct {
	config     *config.Config
	logger     zerolog.Logger
	store      *store.Manager
	registry   *registry.Registry
	engine     *broadcast.Engine
	directory  *users.Directory
	presence   interfaces.PresenceTracker
	wsHandler  *websocket.Handler
	apiServer  *api.Server
	httpServer *http.Server
}

// NewApplication builds the component graph: store, verifier, registry,
// broadcast engine, user directory, presence, websocket handler, API, HTTP
// server. It fails fast on the first component that cannot start.
func NewApplication(cfg *config.Config, logger zerolog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	scope := types.Scope(cfg.Chat.Scope)

	storeManager, err := store.NewManager(&store.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxConnections:  cfg.Database.MaxConnections,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		EnrichHistory:   scope.PerVideo(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize message store: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer)
	if err != nil {
		_ = storeManager.Close()
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	roomRegistry := registry.NewRegistry(logger)
	engine := broadcast.NewEngine(roomRegistry, logger)
	directory := users.NewDirectory(storeManager, logger)

	var tracker interfaces.PresenceTracker
	if cfg.PresenceEnabled() {
		tracker, err = presence.NewTracker(&presence.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.PresenceTTL,
		}, logger)
		if err != nil {
			_ = storeManager.Close()
			return nil, fmt.Errorf("failed to initialize presence tracker: %w", err)
		}
	} else {
		tracker = presence.NewNoop()
	}

	wsHandler := websocket.NewHandler(websocket.Config{
		Scope:              scope,
		PingInterval:       cfg.WebSocket.PingInterval,
		PongTimeout:        cfg.WebSocket.PongTimeout,
		SendBuffer:         cfg.WebSocket.SendBuffer,
		RateLimitPerMinute: cfg.Chat.RateLimitPerMinute,
		MaxContentBytes:    cfg.Chat.MaxContentBytes,
		PresenceHeartbeat:  cfg.Redis.HeartbeatInterval,
	}, roomRegistry, storeManager, verifier, engine, tracker, directory, logger)

	apiServer := api.NewServer(api.Config{
		Scope:           scope,
		PresenceEnabled: cfg.PresenceEnabled(),
	}, storeManager, roomRegistry, engine, directory, tracker, wsHandler.HandleWebSocket, logger)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      apiServer,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		logger:     logger.With().Str("component", "app").Logger(),
		store:      storeManager,
		registry:   roomRegistry,
		engine:     engine,
		directory:  directory,
		presence:   tracker,
		wsHandler:  wsHandler,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start brings up the HTTP server and returns once it accepts connections.
// A listen failure within the startup window is returned to the caller.
func (app *Application) Start(ctx context.Context) error {
	app.logger.Info().
		Str("addr", app.httpServer.Addr).
		Str("scope", app.config.Chat.Scope).
		Str("driver", app.config.Database.Driver).
		Bool("presence", app.config.PresenceEnabled()).
		Msg("starting coursechat")

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-time.After(100 * time.Millisecond):
		app.logger.Info().Msg("coursechat started")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts components down in reverse order: stop accepting requests,
// close live connections, then release presence and the store. Errors are
// logged and do not abort the rest of the teardown.
func (app *Application) Stop(ctx context.Context) error {
	app.logger.Info().Msg("shutting down coursechat")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		app.logger.Error().Err(err).Msg("http server shutdown")
	}

	app.wsHandler.Shutdown()
	app.registry.CloseAll()

	if err := app.presence.Close(); err != nil {
		app.logger.Error().Err(err).Msg("presence shutdown")
	}

	if err := app.store.Close(); err != nil {
		app.logger.Error().Err(err).Msg("store shutdown")
	}

	app.logger.Info().Msg("coursechat shutdown complete")
	return nil
}

// Addr returns the server address for external connections.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
