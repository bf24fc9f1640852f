package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// minJWTSecretLen is the minimum HS256 key length in bytes.
const minJWTSecretLen = 32

func (c *Config) validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNetwork(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	if err := c.validateEncryption(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	if err := c.validateSchedules(); err != nil {
		return err
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.DatabaseURL.Value() == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	if !isLocalHost(dbURL.Hostname()) && dbURL.Query().Get("sslmode") == "disable" {
		return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", dbURL.Hostname())
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Loopback for local use, wildcard for containers behind a proxy.
	validHosts := map[string]bool{
		"127.0.0.1": true,
		"::1":       true,
		"localhost": true,
		"0.0.0.0":   true,
		"::":        true,
	}
	if !validHosts[c.ListenHost] {
		return fmt.Errorf("LISTEN_HOST must be a loopback address or 0.0.0.0/:: for containers (got %q)", c.ListenHost)
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func (c *Config) validateEncryption() error {
	if c.EncryptionKey.Value() == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}

	keyBytes, err := hex.DecodeString(c.EncryptionKey.Value())
	if err != nil {
		return fmt.Errorf("ENCRYPTION_KEY must be valid hex: %w", err)
	}

	if len(keyBytes) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (32 bytes), got %d chars", len(c.EncryptionKey.Value()))
	}

	return nil
}

func (c *Config) validateAuth() error {
	if len(c.JWTSecret.Value()) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLen)
	}

	if c.TokenTTL < time.Minute || c.TokenTTL > 24*time.Hour {
		return fmt.Errorf("TOKEN_TTL must be between 1m and 24h, got %s", c.TokenTTL)
	}

	return nil
}

func (c *Config) validateSchedules() error {
	if _, err := cron.ParseStandard(c.GovernanceVerifySchedule); err != nil {
		return fmt.Errorf("GOVERNANCE_VERIFY_SCHEDULE is not a valid cron spec: %w", err)
	}

	if _, err := cron.ParseStandard(c.AuditVerifySchedule); err != nil {
		return fmt.Errorf("AUDIT_VERIFY_SCHEDULE is not a valid cron spec: %w", err)
	}

	return nil
}

func isLocalHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
