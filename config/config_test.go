package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
		assert.Equal(t, 5*time.Minute, cfg.Session.FreshTTL)
		assert.Equal(t, 3, cfg.Session.FetchAttempts)
		assert.Equal(t, 3*time.Second, cfg.Session.FetchTimeout)
		assert.Equal(t, 10*time.Second, cfg.Session.Ceiling)
		assert.False(t, cfg.Session.AllowStaleRoles)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("APP_PORT", "9090")
		t.Setenv("APP_ENV", "development")
		t.Setenv("SESSION_FRESH_TTL", "1m")
		t.Setenv("SESSION_ALLOW_STALE_ROLES", "true")
		t.Setenv("MAIL_RELAY_URL", "http://relay:3001/")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.App.Port)
		assert.True(t, cfg.IsDevelopment())
		assert.Equal(t, time.Minute, cfg.Session.FreshTTL)
		assert.True(t, cfg.Session.AllowStaleRoles)
		assert.Equal(t, "http://relay:3001", cfg.Mail.RelayURL)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")

		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
