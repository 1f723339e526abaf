package config

import (
	"fmt"
	"slices"
)

// validSSLModes are the sslmode values accepted by libpq/pgx.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate performs checks common to all commands.
// Called at startup so that misconfiguration fails the process, not the first request.
func (c *Config) Validate() error {
	if c.PostgresHost == "" || c.PostgresDBName == "" || c.PostgresUser == "" {
		return fmt.Errorf("%w: set DATABASE_URL or the postgres_* settings", ErrMissingDatabaseURI)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}

// ValidateServe performs additional checks for the serve command.
// Requires a usable signing key source and a fully configured notification sink.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Auth.JWKSURI == "" {
		return fmt.Errorf("%w: set auth.jwks_uri or auth.openid_configuration_url", ErrMissingJWKSURI)
	}

	switch c.EventsSink {
	case "", SinkNone, SinkLog:
	case SinkRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: events_sink is %q", ErrMissingRedisURL, SinkRedis)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEventsSink, c.EventsSink)
	}

	return nil
}
