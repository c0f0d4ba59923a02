package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Session storage backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Backends BackendsConfig
	Session  SessionConfig

	Mongo MongoConfig
	Redis RedisConfig
}

// BackendsConfig points at the remote services. Any service URL left empty
// falls back to APIBaseURL.
type BackendsConfig struct {
	APIBaseURL       string        `env:"API_BASE_URL, default=http://localhost:8000"`
	AuthBaseURL      string        `env:"AUTH_BASE_URL"`
	HRBaseURL        string        `env:"HR_BASE_URL"`
	AdminBaseURL     string        `env:"ADMIN_BASE_URL"`
	CandidateBaseURL string        `env:"CANDIDATE_BASE_URL"`
	Timeout          time.Duration `env:"HTTP_TIMEOUT, default=15s"`
}

type SessionConfig struct {
	Backend             string        `env:"SESSION_BACKEND,       default=memory"`
	TTL                 time.Duration `env:"SESSION_TTL,           default=24h"`
	TabIdleTimeout      time.Duration `env:"TAB_IDLE_TIMEOUT,      default=30m"`
	ResetThrottleWindow time.Duration `env:"RESET_THROTTLE_WINDOW, default=10m"`
	SecureCookie        bool          `env:"SESSION_SECURE_COOKIE, default=false"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=portal"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
// In development a .env file in the working directory is loaded first; it
// never overrides variables that are already set.
func Load(ctx context.Context) (*Config, error) {
	if env := os.Getenv("ENV"); env == "" || env == "development" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("config: SESSION_BACKEND must be %q or %q, got %q",
			SessionBackendMemory, SessionBackendRedis, c.Session.Backend)
	}
	if c.Backends.APIBaseURL == "" {
		return fmt.Errorf("config: API_BASE_URL is required")
	}
	return nil
}

// IsDevelopment reports whether the portal runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// AuditEnabled reports whether session events are stored in MongoDB.
func (c *Config) AuditEnabled() bool {
	return c.Mongo.URI != ""
}

// Auth returns the auth service base URL.
func (b BackendsConfig) Auth() string { return orDefault(b.AuthBaseURL, b.APIBaseURL) }

// HR returns the HR service base URL.
func (b BackendsConfig) HR() string { return orDefault(b.HRBaseURL, b.APIBaseURL) }

// Admin returns the admin service base URL.
func (b BackendsConfig) Admin() string { return orDefault(b.AdminBaseURL, b.APIBaseURL) }

// Candidate returns the candidate service base URL.
func (b BackendsConfig) Candidate() string { return orDefault(b.CandidateBaseURL, b.APIBaseURL) }

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
