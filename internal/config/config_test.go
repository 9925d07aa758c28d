package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_SECONDS", "")
	t.Setenv("AUTH_SESSION_TTL_SECONDS", "")
	t.Setenv("AUTH_BCRYPT_COST", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3600, cfg.Auth.AccessTokenTTLSeconds)
	assert.Equal(t, cfg.Auth.AccessTokenTTLSeconds, cfg.Auth.SessionTTLSeconds)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, time.Hour, cfg.Auth.SessionTTL())
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoadSessionTTLFollowsAccessTTL(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_SECONDS", "900")
	t.Setenv("AUTH_SESSION_TTL_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 900, cfg.Auth.SessionTTLSeconds)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL())
}

func TestLoadRejectsLedgerOutlivingCredential(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_SECONDS", "60")
	t.Setenv("AUTH_SESSION_TTL_SECONDS", "120")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_SESSION_TTL_SECONDS")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Env: "production", Port: "8080"},
		Auth: AuthConfig{
			JWTSecret:             "dev-secret",
			AccessTokenTTLSeconds: 0,
			SessionTTLSeconds:     0,
			BcryptCost:            2,
			HashConcurrency:       0,
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "development default")
	assert.Contains(t, msg, "AUTH_ACCESS_TOKEN_TTL_SECONDS must be positive")
	assert.Contains(t, msg, "AUTH_BCRYPT_COST")
	assert.Contains(t, msg, "AUTH_HASH_CONCURRENCY")
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 5*time.Second, AppConfig{RequestTimeoutSeconds: 5}.RequestTimeout())
}
