package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"coursechat/pkg/types"
)

// Config holds every tunable of the chat service. Precedence is defaults,
// then config file, then environment, so a containerized deployment can
// override a checked-in file without editing it.
type Config struct {
	HTTP      *HTTPConfig      `json:"http"`
	Database  *DatabaseConfig  `json:"database"`
	Auth      *AuthConfig      `json:"auth"`
	Chat      *ChatConfig      `json:"chat"`
	WebSocket *WebSocketConfig `json:"websocket"`
	Redis     *RedisConfig     `json:"redis"`
	Log       *LogConfig       `json:"log"`
}

type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// Addr renders the listen address.
func (c *HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	// Driver is a database/sql driver name, "sqlite3" or "pgx".
	Driver string `json:"driver"`

	// DSN is driver-specific: a file path for sqlite, a connection URL
	// for postgres.
	DSN string `json:"dsn"`

	MaxConnections  int           `json:"max_connections"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

type AuthConfig struct {
	// Secret signs and verifies tokens; shared with the platform that
	// issues them. Required, no default.
	Secret string `json:"secret"`

	// Issuer, when set, must match the token's iss claim.
	Issuer string `json:"issuer"`
}

type ChatConfig struct {
	// Scope selects the room-key shape: "course" or "course_video".
	Scope string `json:"scope"`

	RateLimitPerMinute int `json:"rate_limit_per_minute"`
	MaxContentBytes    int `json:"max_content_bytes"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `json:"ping_interval"`
	PongTimeout  time.Duration `json:"pong_timeout"`
	SendBuffer   int           `json:"send_buffer"`
}

// RedisConfig configures the presence tracker. An empty Addr disables
// presence entirely; the service then runs with a no-op tracker.
type RedisConfig struct {
	Addr              string        `json:"addr"`
	Password          string        `json:"password"`
	DB                int           `json:"db"`
	PresenceTTL       time.Duration `json:"presence_ttl"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
}

type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `json:"level"`

	// Pretty switches from JSON to the human console writer.
	Pretty bool `json:"pretty"`
}

// DefaultConfig returns the development defaults. Auth.Secret deliberately
// has none; Validate rejects a config that never set it.
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: &DatabaseConfig{
			Driver:          "sqlite3",
			DSN:             "./coursechat.db",
			MaxConnections:  10,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Auth: &AuthConfig{},
		Chat: &ChatConfig{
			Scope:              string(types.ScopeCourse),
			RateLimitPerMinute: 100,
			MaxContentBytes:    types.MaxContentBytes,
		},
		WebSocket: &WebSocketConfig{
			PingInterval: 30 * time.Second,
			PongTimeout:  60 * time.Second,
			SendBuffer:   256,
		},
		Redis: &RedisConfig{
			PresenceTTL:       60 * time.Second,
			HeartbeatInterval: 30 * time.Second,
		},
		Log: &LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the whole configuration and reports the first problem.
// Called once at startup; a process never runs on an invalid config.
func (c *Config) Validate() error {
	if c.HTTP == nil {
		return fmt.Errorf("http configuration is required")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("http host cannot be empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("http read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("http write timeout must be positive")
	}

	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver cannot be empty")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn cannot be empty")
	}
	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("database max connections must be positive")
	}
	if c.Database.ConnMaxLifetime <= 0 {
		return fmt.Errorf("database connection lifetime must be positive")
	}
	if c.Database.ConnMaxIdleTime <= 0 {
		return fmt.Errorf("database connection idle time must be positive")
	}

	if c.Auth == nil || c.Auth.Secret == "" {
		return fmt.Errorf("auth secret is required")
	}

	if c.Chat == nil {
		return fmt.Errorf("chat configuration is required")
	}
	if !types.Scope(c.Chat.Scope).Valid() {
		return fmt.Errorf("chat scope must be %q or %q", types.ScopeCourse, types.ScopeCourseVideo)
	}
	if c.Chat.RateLimitPerMinute <= 0 {
		return fmt.Errorf("chat rate limit must be positive")
	}
	if c.Chat.MaxContentBytes <= 0 || c.Chat.MaxContentBytes > types.MaxContentBytes {
		return fmt.Errorf("chat max content bytes must be between 1 and %d", types.MaxContentBytes)
	}

	if c.WebSocket == nil {
		return fmt.Errorf("websocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("websocket ping interval must be positive")
	}
	if c.WebSocket.PongTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("websocket pong timeout must exceed the ping interval")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket send buffer must be positive")
	}

	if c.Redis == nil {
		return fmt.Errorf("redis configuration is required")
	}
	if c.Redis.Addr != "" {
		if c.Redis.DB < 0 {
			return fmt.Errorf("redis db cannot be negative")
		}
		if c.Redis.PresenceTTL <= 0 {
			return fmt.Errorf("redis presence ttl must be positive")
		}
		if c.Redis.HeartbeatInterval <= 0 {
			return fmt.Errorf("redis heartbeat interval must be positive")
		}
		if c.Redis.HeartbeatInterval >= c.Redis.PresenceTTL {
			return fmt.Errorf("redis heartbeat interval must be shorter than the presence ttl")
		}
	}

	if c.Log == nil {
		return fmt.Errorf("log configuration is required")
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level %q is not one of trace, debug, info, warn, error", c.Log.Level)
	}

	return nil
}

// PresenceEnabled reports whether a Redis tracker should be wired.
func (c *Config) PresenceEnabled() bool {
	return c.Redis != nil && c.Redis.Addr != ""
}

// LoadFromEnv returns the defaults with environment overrides applied.
func LoadFromEnv() *Config {
	config := DefaultConfig()
	config.applyEnv()
	return config
}

// applyEnv overlays COURSECHAT_* environment variables onto the config.
// Unparsable values are ignored in favor of what is already set.
func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("COURSECHAT_HTTP_HOST", &c.HTTP.Host)
	setInt("COURSECHAT_HTTP_PORT", &c.HTTP.Port)
	setDuration("COURSECHAT_HTTP_READ_TIMEOUT", &c.HTTP.ReadTimeout)
	setDuration("COURSECHAT_HTTP_WRITE_TIMEOUT", &c.HTTP.WriteTimeout)

	setString("COURSECHAT_DATABASE_DRIVER", &c.Database.Driver)
	setString("COURSECHAT_DATABASE_DSN", &c.Database.DSN)
	setInt("COURSECHAT_DATABASE_MAX_CONNECTIONS", &c.Database.MaxConnections)
	setDuration("COURSECHAT_DATABASE_CONN_MAX_LIFETIME", &c.Database.ConnMaxLifetime)
	setDuration("COURSECHAT_DATABASE_CONN_MAX_IDLE_TIME", &c.Database.ConnMaxIdleTime)

	setString("COURSECHAT_AUTH_SECRET", &c.Auth.Secret)
	setString("COURSECHAT_AUTH_ISSUER", &c.Auth.Issuer)

	setString("COURSECHAT_CHAT_SCOPE", &c.Chat.Scope)
	setInt("COURSECHAT_CHAT_RATE_LIMIT_PER_MINUTE", &c.Chat.RateLimitPerMinute)
	setInt("COURSECHAT_CHAT_MAX_CONTENT_BYTES", &c.Chat.MaxContentBytes)

	setDuration("COURSECHAT_WEBSOCKET_PING_INTERVAL", &c.WebSocket.PingInterval)
	setDuration("COURSECHAT_WEBSOCKET_PONG_TIMEOUT", &c.WebSocket.PongTimeout)
	setInt("COURSECHAT_WEBSOCKET_SEND_BUFFER", &c.WebSocket.SendBuffer)

	setString("COURSECHAT_REDIS_ADDR", &c.Redis.Addr)
	setString("COURSECHAT_REDIS_PASSWORD", &c.Redis.Password)
	setInt("COURSECHAT_REDIS_DB", &c.Redis.DB)
	setDuration("COURSECHAT_REDIS_PRESENCE_TTL", &c.Redis.PresenceTTL)
	setDuration("COURSECHAT_REDIS_HEARTBEAT_INTERVAL", &c.Redis.HeartbeatInterval)

	setString("COURSECHAT_LOG_LEVEL", &c.Log.Level)
	setBool("COURSECHAT_LOG_PRETTY", &c.Log.Pretty)
}

// ConfigFile mirrors Config for JSON parsing; durations are strings like
// "30s" so config files stay readable.
type ConfigFile struct {
	HTTP      *HTTPConfigFile      `json:"http"`
	Database  *DatabaseConfigFile  `json:"database"`
	Auth      *AuthConfig          `json:"auth"`
	Chat      *ChatConfig          `json:"chat"`
	WebSocket *WebSocketConfigFile `json:"websocket"`
	Redis     *RedisConfigFile     `json:"redis"`
	Log       *LogConfig           `json:"log"`
}

type HTTPConfigFile struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

type DatabaseConfigFile struct {
	Driver          string `json:"driver"`
	DSN             string `json:"dsn"`
	MaxConnections  int    `json:"max_connections"`
	ConnMaxLifetime string `json:"conn_max_lifetime"`
	ConnMaxIdleTime string `json:"conn_max_idle_time"`
}

type WebSocketConfigFile struct {
	PingInterval string `json:"ping_interval"`
	PongTimeout  string `json:"pong_timeout"`
	SendBuffer   int    `json:"send_buffer"`
}

type RedisConfigFile struct {
	Addr              string `json:"addr"`
	Password          string `json:"password"`
	DB                int    `json:"db"`
	PresenceTTL       string `json:"presence_ttl"`
	HeartbeatInterval string `json:"heartbeat_interval"`
}

// LoadFromFile parses a JSON config file over the defaults. The result is
// not validated here; callers validate after environment overrides land.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file ConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config := DefaultConfig()
	config.applyFile(&file)
	return config, nil
}

func (c *Config) applyFile(file *ConfigFile) {
	parse := func(raw string, dst *time.Duration) {
		if raw == "" {
			return
		}
		if d, err := time.ParseDuration(raw); err == nil {
			*dst = d
		}
	}

	if file.HTTP != nil {
		if file.HTTP.Host != "" {
			c.HTTP.Host = file.HTTP.Host
		}
		if file.HTTP.Port > 0 {
			c.HTTP.Port = file.HTTP.Port
		}
		parse(file.HTTP.ReadTimeout, &c.HTTP.ReadTimeout)
		parse(file.HTTP.WriteTimeout, &c.HTTP.WriteTimeout)
	}

	if file.Database != nil {
		if file.Database.Driver != "" {
			c.Database.Driver = file.Database.Driver
		}
		if file.Database.DSN != "" {
			c.Database.DSN = file.Database.DSN
		}
		if file.Database.MaxConnections > 0 {
			c.Database.MaxConnections = file.Database.MaxConnections
		}
		parse(file.Database.ConnMaxLifetime, &c.Database.ConnMaxLifetime)
		parse(file.Database.ConnMaxIdleTime, &c.Database.ConnMaxIdleTime)
	}

	if file.Auth != nil {
		if file.Auth.Secret != "" {
			c.Auth.Secret = file.Auth.Secret
		}
		if file.Auth.Issuer != "" {
			c.Auth.Issuer = file.Auth.Issuer
		}
	}

	if file.Chat != nil {
		if file.Chat.Scope != "" {
			c.Chat.Scope = file.Chat.Scope
		}
		if file.Chat.RateLimitPerMinute > 0 {
			c.Chat.RateLimitPerMinute = file.Chat.RateLimitPerMinute
		}
		if file.Chat.MaxContentBytes > 0 {
			c.Chat.MaxContentBytes = file.Chat.MaxContentBytes
		}
	}

	if file.WebSocket != nil {
		if file.WebSocket.SendBuffer > 0 {
			c.WebSocket.SendBuffer = file.WebSocket.SendBuffer
		}
		parse(file.WebSocket.PingInterval, &c.WebSocket.PingInterval)
		parse(file.WebSocket.PongTimeout, &c.WebSocket.PongTimeout)
	}

	if file.Redis != nil {
		if file.Redis.Addr != "" {
			c.Redis.Addr = file.Redis.Addr
		}
		if file.Redis.Password != "" {
			c.Redis.Password = file.Redis.Password
		}
		if file.Redis.DB != 0 {
			c.Redis.DB = file.Redis.DB
		}
		parse(file.Redis.PresenceTTL, &c.Redis.PresenceTTL)
		parse(file.Redis.HeartbeatInterval, &c.Redis.HeartbeatInterval)
	}

	if file.Log != nil {
		if file.Log.Level != "" {
			c.Log.Level = file.Log.Level
		}
		if file.Log.Pretty {
			c.Log.Pretty = true
		}
	}
}

// LoadWithPrecedence layers defaults, then the optional config file, then
// environment variables. A path that cannot be read or parsed is an error;
// an empty path skips the file layer. The caller validates the result.
func LoadWithPrecedence(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	config.applyEnv()
	return config, nil
}
