package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/auth"
)

func setConfigEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_SIGNING_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTH_ISSUER", "test-issuer")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL", "168h")
}

func TestLoadConfig(t *testing.T) {
	t.Run("loads from environment", func(t *testing.T) {
		setConfigEnv(t)

		cfg, err := auth.LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.GetSigningKey())
		assert.Equal(t, "test-issuer", cfg.GetIssuer())
		assert.Equal(t, 15*time.Minute, cfg.GetAccessTokenTTL())
		assert.Equal(t, 168*time.Hour, cfg.GetRefreshTokenTTL())
	})

	t.Run("missing variable fails", func(t *testing.T) {
		setConfigEnv(t)
		t.Setenv("AUTH_SIGNING_SECRET", "")

		_, err := auth.LoadConfig()
		assert.Error(t, err)
	})

	t.Run("short signing secret fails", func(t *testing.T) {
		setConfigEnv(t)
		t.Setenv("AUTH_SIGNING_SECRET", "too-short")

		_, err := auth.LoadConfig()
		assert.Error(t, err)
	})

	t.Run("refresh TTL must exceed access TTL", func(t *testing.T) {
		setConfigEnv(t)
		t.Setenv("AUTH_REFRESH_TOKEN_TTL", "15m")

		_, err := auth.LoadConfig()
		assert.Error(t, err)
	})
}

func TestEnvConfigValidate(t *testing.T) {
	valid := func() *auth.EnvConfig {
		return &auth.EnvConfig{
			SigningSecret:   "0123456789abcdef0123456789abcdef",
			Issuer:          "test-issuer",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 168 * time.Hour,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("negative access TTL", func(t *testing.T) {
		cfg := valid()
		cfg.AccessTokenTTL = -time.Minute
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero refresh TTL", func(t *testing.T) {
		cfg := valid()
		cfg.RefreshTokenTTL = 0
		assert.Error(t, cfg.Validate())
	})
}
