// Package config provides environment-driven configuration for the QMS server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL              Secret
	DBMaxConns               int
	Port                     string
	ListenHost               string
	CORSOrigins              []string
	LogLevel                 string
	Environment              string
	JWTSecret                Secret
	TokenTTL                 time.Duration
	EncryptionKey            Secret
	SentryDSN                Secret
	AccessQueueSize          int
	GovernanceVerifySchedule string
	AuditVerifySchedule      string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:              Secret(envOrDefault("DATABASE_URL", "")),
		Port:                     envOrDefault("PORT", "8080"),
		ListenHost:               envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:                 envOrDefault("LOG_LEVEL", "info"),
		Environment:              envOrDefault("ENVIRONMENT", "development"),
		JWTSecret:                Secret(envOrDefault("JWT_SECRET", "")),
		EncryptionKey:            Secret(envOrDefault("ENCRYPTION_KEY", "")),
		SentryDSN:                Secret(envOrDefault("SENTRY_DSN", "")),
		GovernanceVerifySchedule: envOrDefault("GOVERNANCE_VERIFY_SCHEDULE", "0 * * * *"),
		AuditVerifySchedule:      envOrDefault("AUDIT_VERIFY_SCHEDULE", "30 2 * * *"),
	}

	ttl, err := time.ParseDuration(envOrDefault("TOKEN_TTL", "8h"))
	if err != nil {
		return nil, fmt.Errorf("TOKEN_TTL must be a duration (e.g. 8h): %w", err)
	}
	cfg.TokenTTL = ttl

	maxConns, err := strconv.Atoi(envOrDefault("DB_MAX_CONNS", "21"))
	if err != nil || maxConns < 2 || maxConns > 200 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be an integer between 2 and 200")
	}
	cfg.DBMaxConns = maxConns

	queueSize, err := strconv.Atoi(envOrDefault("ACCESS_QUEUE_SIZE", "1000"))
	if err != nil || queueSize < 1 {
		return nil, fmt.Errorf("ACCESS_QUEUE_SIZE must be a positive integer")
	}
	cfg.AccessQueueSize = queueSize

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
