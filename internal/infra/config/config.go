// Package config loads process-wide configuration from environment variables.
// Values are read once at startup; every field has a local-development default
// except JWT_SECRET in production.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the gateway.
type Config struct {
	// HTTP
	Port           string   // PORT — default: "3000"
	AllowedOrigins []string // ALLOWED_ORIGINS — CSV, default: "*"
	Env            string   // APP_ENV — default: "development"

	// Sessions
	JWTSecret string // JWT_SECRET — required in production

	// Logging
	LogLevel string // LOG_LEVEL — default: "info"

	// Downstream
	APIBaseURL string // GHL_API_BASE_URL — default: "https://services.leadconnectorhq.com"
	MCPBaseURL string // GHL_MCP_BASE_URL — default: "https://services.leadconnectorhq.com/mcp/"

	// Rate limiting
	RateLimitMax    int           // RATE_LIMIT_MAX — default: 100
	RateLimitWindow time.Duration // RATE_LIMIT_WINDOW_MS — default: 60000

	// Optional storage
	AuditDBPath string // AUDIT_DB_PATH — empty disables the invocation log
	CatalogPath string // CATALOG_PATH — empty uses the embedded catalog
}

const (
	envKeyPort            = "PORT"
	envKeyAllowedOrigins  = "ALLOWED_ORIGINS"
	envKeyEnv             = "APP_ENV"
	envKeyJWTSecret       = "JWT_SECRET"
	envKeyLogLevel        = "LOG_LEVEL"
	envKeyAPIBaseURL      = "GHL_API_BASE_URL"
	envKeyMCPBaseURL      = "GHL_MCP_BASE_URL"
	envKeyRateLimitMax    = "RATE_LIMIT_MAX"
	envKeyRateLimitWindow = "RATE_LIMIT_WINDOW_MS"
	envKeyAuditDBPath     = "AUDIT_DB_PATH"
	envKeyCatalogPath     = "CATALOG_PATH"

	EnvDevelopment = "development"
	EnvProduction  = "production"

	// DevJWTSecret signs sessions when no secret is configured outside production.
	DevJWTSecret = "default-secret-change-in-production"
)

var (
	ErrMissingSecret = errors.New("JWT_SECRET must be set in production")
	ErrInvalidValue  = errors.New("invalid configuration value")
)

// Load reads configuration from environment variables, applying defaults for
// missing values. Unparseable numbers are reported by Validate.
func Load() Config {
	return Config{
		Port:            envOr(envKeyPort, "3000"),
		AllowedOrigins:  splitCSV(envOr(envKeyAllowedOrigins, "*")),
		Env:             envOr(envKeyEnv, EnvDevelopment),
		JWTSecret:       os.Getenv(envKeyJWTSecret),
		LogLevel:        envOr(envKeyLogLevel, "info"),
		APIBaseURL:      envOr(envKeyAPIBaseURL, "https://services.leadconnectorhq.com"),
		MCPBaseURL:      envOr(envKeyMCPBaseURL, "https://services.leadconnectorhq.com/mcp/"),
		RateLimitMax:    envIntOr(envKeyRateLimitMax, 100),
		RateLimitWindow: time.Duration(envIntOr(envKeyRateLimitWindow, 60000)) * time.Millisecond,
		AuditDBPath:     os.Getenv(envKeyAuditDBPath),
		CatalogPath:     os.Getenv(envKeyCatalogPath),
	}
}

// IsProduction reports APP_ENV=production.
func (c Config) IsProduction() bool { return c.Env == EnvProduction }

// SigningSecret returns JWT_SECRET, or the development fallback outside
// production. UsingDevSecret reports the fallback.
func (c Config) SigningSecret() string {
	if c.JWTSecret == "" && !c.IsProduction() {
		return DevJWTSecret
	}
	return c.JWTSecret
}

// UsingDevSecret reports whether SigningSecret falls back to DevJWTSecret.
func (c Config) UsingDevSecret() bool {
	return c.JWTSecret == "" && !c.IsProduction()
}

// Validate rejects configurations the server must not start with.
func (c Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return ErrMissingSecret
	}
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("%w: %s must be a positive integer", ErrInvalidValue, envKeyRateLimitMax)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("%w: %s must be a positive integer", ErrInvalidValue, envKeyRateLimitWindow)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidValue, envKeyPort, c.Port)
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidValue, envKeyAllowedOrigins)
	}
	return nil
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr parses key as an integer. A malformed value yields -1 so Validate
// can reject it instead of silently using the default.
func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return -1
	}
	return n
}

func splitCSV(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
