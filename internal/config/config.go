// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables with the NULLAND_ prefix (runtime override)
//  2. Config file (./config.yaml or /etc/nulland/config.yaml)
//  3. Default values
//
// DATABASE_URL, when set, overrides the individual postgres_* settings.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

var (
	// ErrMissingDatabaseURI indicates no PostgreSQL connection settings were provided.
	ErrMissingDatabaseURI = errors.New("missing database configuration")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrMissingJWKSURI indicates no signing key source is configured.
	ErrMissingJWKSURI = errors.New("missing auth JWKS URI")

	// ErrMissingTokenEndpoint indicates the provider token endpoint is not configured.
	ErrMissingTokenEndpoint = errors.New("missing auth token endpoint")

	// ErrInvalidEventsSink indicates an unknown notification sink name.
	ErrInvalidEventsSink = errors.New("invalid events sink")

	// ErrMissingRedisURL indicates the redis sink is selected without a redis URL.
	ErrMissingRedisURL = errors.New("missing redis URL")
)

// Log output formats.
const (
	LogFormatDefault = "default"
	LogFormatJSON    = "json"
)

// Notification sink identifiers used in Config.EventsSink.
const (
	SinkNone  = "none"
	SinkLog   = "log"
	SinkRedis = "redis"
)

// AuthConfig holds the identity provider endpoints.
//
// When OpenIDConfigurationURL is set, the individual endpoints are filled
// from the provider's discovery document at startup. Explicitly configured
// endpoints take priority over discovered ones.
type AuthConfig struct {
	OpenIDConfigurationURL string `mapstructure:"openid_configuration_url" json:"openid_configuration_url"`
	AuthorizationEndpoint  string `mapstructure:"authorization_endpoint" json:"authorization_endpoint"`
	TokenEndpoint          string `mapstructure:"token_endpoint" json:"token_endpoint"`
	JWKSURI                string `mapstructure:"jwks_uri" json:"jwks_uri"`
}

// Config stores application configuration.
// SECURITY: Sensitive fields are masked in MarshalJSON().
type Config struct {
	// HTTP server
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`

	// Identity provider
	Auth AuthConfig `mapstructure:"auth" json:"auth"`

	// Storage configuration (see storage.go for DSN builders)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Notification sink: "none" (default), "log" or "redis".
	EventsSink string `mapstructure:"events_sink" json:"events_sink"`
	RedisURL   string `mapstructure:"redis_url" json:"redis_url"` // SENSITIVE: masked in MarshalJSON

	// HTTP surface tuning
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	LogFormat string `mapstructure:"log_format" json:"log_format"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/nulland")

	setDefaults(v)

	v.SetEnvPrefix("NULLAND")
	v.AutomaticEnv()
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL has the highest priority for PostgreSQL config.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", "127.0.0.1:8000")

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "nulland")
	v.SetDefault("postgres_db_name", "nulland")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("events_sink", SinkNone)

	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("trust_proxy", false)

	v.SetDefault("log_format", LogFormatDefault)
}

// bindEnvVariables binds nested and sensitive keys explicitly.
// AutomaticEnv does not descend into nested structs on Unmarshal,
// so the auth.* keys need explicit bindings.
func bindEnvVariables(v *viper.Viper) {
	_ = v.BindEnv("auth.openid_configuration_url", "NULLAND_AUTH_OPENID_CONFIGURATION_URL")
	_ = v.BindEnv("auth.authorization_endpoint", "NULLAND_AUTH_AUTHORIZATION_ENDPOINT")
	_ = v.BindEnv("auth.token_endpoint", "NULLAND_AUTH_TOKEN_ENDPOINT")
	_ = v.BindEnv("auth.jwks_uri", "NULLAND_AUTH_JWKS_URI")
	_ = v.BindEnv("postgres_password", "NULLAND_POSTGRES_PASSWORD")
	_ = v.BindEnv("redis_url", "NULLAND_REDIS_URL")
}

// MarshalJSON masks sensitive fields when the configuration is logged or dumped.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	if masked.RedisURL != "" {
		masked.RedisURL = "***"
	}
	return json.Marshal(masked)
}
