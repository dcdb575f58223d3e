// No t.Parallel(): env vars are process-global.
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		envKeyPort, envKeyAllowedOrigins, envKeyEnv, envKeyJWTSecret, envKeyLogLevel,
		envKeyAPIBaseURL, envKeyMCPBaseURL, envKeyRateLimitMax, envKeyRateLimitWindow,
		envKeyAuditDBPath, envKeyCatalogPath,
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, "https://services.leadconnectorhq.com/mcp/", cfg.MCPBaseURL)
	assert.Empty(t, cfg.AuditDBPath)
	assert.Empty(t, cfg.CatalogPath)
	assert.True(t, cfg.UsingDevSecret())
	assert.Equal(t, DevJWTSecret, cfg.SigningSecret())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "1500")
	t.Setenv("AUDIT_DB_PATH", "/tmp/audit.db")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.SigningSecret())
	assert.False(t, cfg.UsingDevSecret())
	assert.Equal(t, 5, cfg.RateLimitMax)
	assert.Equal(t, 1500*time.Millisecond, cfg.RateLimitWindow)
	assert.Equal(t, "/tmp/audit.db", cfg.AuditDBPath)
}

func TestValidate_ProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	require.ErrorIs(t, cfg.Validate(), ErrMissingSecret)
	assert.Empty(t, cfg.SigningSecret(), "production must never fall back to the development secret")
}

func TestValidate_RejectsBadNumbers(t *testing.T) {
	cases := map[string]string{
		"RATE_LIMIT_MAX":       "lots",
		"RATE_LIMIT_WINDOW_MS": "0",
		"PORT":                 "http",
	}
	for key, value := range cases {
		clearEnv(t)
		t.Setenv(key, value)
		assert.ErrorIs(t, Load().Validate(), ErrInvalidValue, "%s=%q", key, value)
	}
}
