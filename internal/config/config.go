// Package config provides centralized configuration management for the dashboard.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Fetch    FetchConfig
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout bounds writing the response; loads can walk four strategies (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 100s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"100s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty selects the in-memory store.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a PostgreSQL store is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// FetchConfig holds upstream spreadsheet retrieval settings.
type FetchConfig struct {
	// DocsBaseURL is the spreadsheet host for GViz and CSV export requests
	DocsBaseURL string `env:"DOCS_BASE_URL" default:"https://docs.google.com"`

	// OpenSheetBaseURL is the OpenSheet API host
	OpenSheetBaseURL string `env:"OPENSHEET_BASE_URL" default:"https://opensheet.elk.sh"`

	// Timeout is the per-request timeout for direct HTTP strategies (default: 15s)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"15s"`

	// ScriptTimeout bounds the JSONP script channel (default: 10s)
	ScriptTimeout time.Duration `env:"FETCH_SCRIPT_TIMEOUT" default:"10s"`

	// MaxBodyBytes caps a single upstream response (default: 32MiB)
	MaxBodyBytes int64 `env:"FETCH_MAX_BODY_BYTES" default:"33554432"`

	// UserAgent is sent with every upstream request
	UserAgent string `env:"FETCH_USER_AGENT" default:"projstat/1.0"`

	// DisableScriptChannel turns the JSONP strategy into an immediate failure
	DisableScriptChannel bool `env:"FETCH_DISABLE_SCRIPT_CHANNEL" default:"false"`
}

// SessionConfig holds per-browser session and load orchestration settings.
type SessionConfig struct {
	// CookieName names the session cookie (default: projstat_session)
	CookieName string `env:"SESSION_COOKIE" default:"projstat_session"`

	// TTL is how long an idle session is kept in memory (default: 12h)
	TTL time.Duration `env:"SESSION_TTL" default:"12h"`

	// SweepInterval is how often idle sessions and old history are swept (default: 5m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`

	// HistoryLimit is the number of load attempts returned by /api/history (default: 20)
	HistoryLimit int `env:"HISTORY_LIMIT" default:"20"`

	// HistoryRetention is how long load history is kept; 0 keeps it forever (default: 720h)
	HistoryRetention time.Duration `env:"HISTORY_RETENTION" default:"720h"`

	// LoadTimeout bounds one full chain run (default: 90s)
	LoadTimeout time.Duration `env:"LOAD_TIMEOUT" default:"90s"`

	// MaxConcurrentLoads is the maximum number of chain runs in flight (default: 8)
	MaxConcurrentLoads int `env:"MAX_CONCURRENT_LOADS" default:"8"`

	// LoadWait is how long a load waits for a free slot (default: 20s)
	LoadWait time.Duration `env:"LOAD_WAIT_TIME" default:"20s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// LoadLimit is requests per minute for load endpoints (default: 20)
	LoadLimit int `env:"RATE_LIMIT_LOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api routes with an X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
