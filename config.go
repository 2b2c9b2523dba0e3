package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig loads the identity layer configuration from environment
// variables. Every value is required at process start; a missing
// variable is a startup error, never a runtime one.
type EnvConfig struct {
	SigningSecret   string        `env:"AUTH_SIGNING_SECRET,required"`
	Issuer          string        `env:"AUTH_ISSUER,required"`
	AccessTokenTTL  time.Duration `env:"AUTH_ACCESS_TOKEN_TTL,required"`
	RefreshTokenTTL time.Duration `env:"AUTH_REFRESH_TOKEN_TTL,required"`
}

var _ Config = (*EnvConfig)(nil)

// LoadConfig parses and validates configuration from the environment.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse auth configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadConfig is LoadConfig that panics on failure, for use in main.
func MustLoadConfig() *EnvConfig {
	cfg, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate enforces the constraints the token codec and session
// manager rely on. Key length is re-checked by NewTokenService so a
// hand-built Config cannot bypass it.
func (c *EnvConfig) Validate() error {
	if len(c.SigningSecret) < MinSigningKeyLength {
		return goerrors.New("signing secret is too short", goerrors.CategoryBadInput).
			WithTextCode("SIGNING_KEY_TOO_SHORT").
			WithMetadata(map[string]any{"min_bytes": MinSigningKeyLength})
	}
	if c.AccessTokenTTL <= 0 {
		return goerrors.New("access token TTL must be positive", goerrors.CategoryBadInput)
	}
	if c.RefreshTokenTTL <= 0 {
		return goerrors.New("refresh token TTL must be positive", goerrors.CategoryBadInput)
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return goerrors.New("refresh token TTL must exceed access token TTL", goerrors.CategoryBadInput)
	}
	return nil
}

func (c *EnvConfig) GetSigningKey() string {
	return c.SigningSecret
}

func (c *EnvConfig) GetIssuer() string {
	return c.Issuer
}

func (c *EnvConfig) GetAccessTokenTTL() time.Duration {
	return c.AccessTokenTTL
}

func (c *EnvConfig) GetRefreshTokenTTL() time.Duration {
	return c.RefreshTokenTTL
}
