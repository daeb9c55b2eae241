package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 10, cfg.Discovery.DefaultLimit)
	assert.Equal(t, 5*time.Minute, cfg.AWS.PresignExpires)
	assert.Equal(t, "https://graph.instagram.com", cfg.Instagram.APIBaseURL)
	assert.Equal(t, []string{"*"}, cfg.Server.CorsOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_TOKEN_TTL", "2h")
	t.Setenv("SERVER_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("DISCOVERY_DEFAULT_LIMIT", "20")
	t.Setenv("DISCOVERY_MAX_LIMIT", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CorsOrigins)
	assert.Equal(t, 20, cfg.Discovery.DefaultLimit)
	assert.Equal(t, 20, cfg.Discovery.MaxLimit)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_RequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvAsInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
}
