package config

import (
	"fmt"
	"time"
)

// JWTConfig holds configuration for JWT token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// JWT returns the token configuration. The secret is only required by
// callers that serve or mint user-scoped tokens.
func (c *Config) JWT() (*JWTConfig, error) {
	config := &JWTConfig{
		Secret:          c.Auth.JWTSecret,
		ExpirationHours: c.Auth.ExpirationHours,
	}
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

// Expiration returns the token lifetime.
func (c *JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("%s_AUTH_JWT_SECRET cannot be empty", EnvPrefix)
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("%s_AUTH_JWT_SECRET must be at least 16 characters", EnvPrefix)
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("auth.expiration_hours must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
