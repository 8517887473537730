package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"coursechat/internal/broadcast"
	"coursechat/pkg/interfaces"
	"coursechat/pkg/types"
)

// DeliveryStats reports broadcast counters without coupling the API to the
// engine implementation.
type DeliveryStats interface {
	Stats() broadcast.Stats
}

// NameCache reports how many display names are resident.
type NameCache interface {
	CachedCount() int
}

// Config selects which routes the server exposes and how it validates
// presence queries.
type Config struct {
	Scope types.Scope

	// PresenceEnabled mounts /api/presence. Without Redis the route does
	// not exist and answers 404 like any unknown path.
	PresenceEnabled bool
}

// Server is the HTTP surface around the chat core: the websocket endpoint
// plus a small read-only API for operators and the course platform. No
// business logic lives here, only HTTP handling and JSON serialization.
type Server struct {
	cfg       Config
	store     interfaces.MessageStore
	registry  interfaces.RoomRegistry
	delivery  DeliveryStats
	names     NameCache
	presence  interfaces.PresenceTracker
	router    chi.Router
	logger    zerolog.Logger
	startedAt time.Time
}

// NewServer wires the routes. ws is the websocket upgrade handler, mounted
// outside the JSON middleware since its responses are not JSON.
func NewServer(
	cfg Config,
	store interfaces.MessageStore,
	registry interfaces.RoomRegistry,
	delivery DeliveryStats,
	names NameCache,
	presence interfaces.PresenceTracker,
	ws http.HandlerFunc,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		registry:  registry,
		delivery:  delivery,
		names:     names,
		presence:  presence,
		logger:    logger.With().Str("component", "api").Logger(),
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	// CORS sits above routing so preflight requests are answered even
	// though only GET routes are registered.
	r.Use(corsHandler())

	r.Get("/ws", ws)

	r.Group(func(r chi.Router) {
		r.Use(jsonContentType)

		r.Get("/health", s.handleHealth)
		r.Route("/api", func(r chi.Router) {
			r.Get("/stats", s.handleStats)
			if cfg.PresenceEnabled {
				r.Get("/presence", s.handlePresence)
			}
		})
	})

	s.router = r
	return s
}

// ServeHTTP hands requests to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      string    `json:"uptime"`
	Database    string    `json:"database"`
	Rooms       int       `json:"rooms"`
	Connections int       `json:"connections"`
}

type StatsResponse struct {
	Rooms       int             `json:"rooms"`
	Connections int             `json:"connections"`
	Delivery    broadcast.Stats `json:"delivery"`
	NamesCached int             `json:"names_cached"`
}

type PresenceResponse struct {
	Room   string   `json:"room"`
	Online []string `json:"online"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// handleHealth reports liveness for load balancers: 200 while the store
// answers, 503 once it does not.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "healthy"
	if err := s.store.HealthCheck(ctx); err != nil {
		status = "unhealthy"
		dbStatus = err.Error()
		s.logger.Error().Err(err).Msg("store health check failed")
	}

	rooms, connections := s.registry.Counts()
	response := HealthResponse{
		Status:      status,
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
		Database:    dbStatus,
		Rooms:       rooms,
		Connections: connections,
	}

	if status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	s.writeJSON(w, response)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	rooms, connections := s.registry.Counts()
	s.writeJSON(w, StatsResponse{
		Rooms:       rooms,
		Connections: connections,
		Delivery:    s.delivery.Stats(),
		NamesCached: s.names.CachedCount(),
	})
}

// handlePresence lists users currently online in one room. The room key is
// validated the same way the websocket handshake validates it.
func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	key := types.RoomKey{
		CourseID: r.URL.Query().Get("courseId"),
		VideoID:  r.URL.Query().Get("videoId"),
	}
	if err := key.Validate(s.cfg.Scope); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	online, err := s.presence.OnlineInRoom(r.Context(), key)
	if err != nil {
		s.logger.Error().Err(err).Str("room", key.String()).Msg("presence lookup failed")
		s.sendError(w, "presence lookup failed", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, PresenceResponse{Room: key.String(), Online: online})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	s.writeJSON(w, ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

// requestLogger logs completed requests at debug with status and duration.
// The websocket route is skipped: its requests live as long as the
// connection and would log once per disconnect, not per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

func corsHandler() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         86400,
	})
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
