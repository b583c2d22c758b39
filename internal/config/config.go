// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required for server, migrate, and seed.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// JWTSecret is the HMAC secret for signing access tokens; required when serving.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim (e.g. "authgate").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "authgate-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// AccessTokenTTL is the access token lifetime (e.g. "15m").
	AccessTokenTTL string `mapstructure:"ACCESS_TOKEN_TTL"`
	// RefreshTokenTTL is the refresh token lifetime (e.g. "168h").
	RefreshTokenTTL string `mapstructure:"REFRESH_TOKEN_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// MaxAttemptsPerWindow is the number of failed logins from one source that triggers a lockout.
	MaxAttemptsPerWindow int `mapstructure:"MAX_ATTEMPTS_PER_WINDOW"`
	// AttemptWindow is the failure-counting window (e.g. "15m").
	AttemptWindow string `mapstructure:"ATTEMPT_WINDOW"`
	// LockoutDuration is how long a source stays locked out after too many failures (e.g. "15m").
	LockoutDuration string `mapstructure:"LOCKOUT_DURATION"`
	// MaxConcurrentSessions is the per-account active session cap; the oldest session is evicted beyond it.
	MaxConcurrentSessions int `mapstructure:"MAX_CONCURRENT_SESSIONS"`
	// ThrottleRetention is how long idle throttle entries are kept before the sweeper drops them (e.g. "24h").
	ThrottleRetention string `mapstructure:"THROTTLE_RETENTION"`
	// ThrottleSweepInterval is how often the background sweeper runs (e.g. "1h").
	ThrottleSweepInterval string `mapstructure:"THROTTLE_SWEEP_INTERVAL"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// SentryDSN enables Sentry error reporting when non-empty.
	SentryDSN string `mapstructure:"SENTRY_DSN"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses for the auth event stream. Empty disables it.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuthEventsTopic is the Kafka topic auth events are published to.
	AuthEventsTopic string `mapstructure:"AUTH_EVENTS_KAFKA_TOPIC"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "authgate")
	v.SetDefault("JWT_AUDIENCE", "authgate-api")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("MAX_ATTEMPTS_PER_WINDOW", 5)
	v.SetDefault("ATTEMPT_WINDOW", "15m")
	v.SetDefault("LOCKOUT_DURATION", "15m")
	v.SetDefault("MAX_CONCURRENT_SESSIONS", 5)
	v.SetDefault("THROTTLE_RETENTION", "24h")
	v.SetDefault("THROTTLE_SWEEP_INTERVAL", "1h")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUTH_EVENTS_KAFKA_TOPIC", "authgate-events")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.MaxAttemptsPerWindow < 1 {
		return nil, errors.New("config: MAX_ATTEMPTS_PER_WINDOW must be at least 1")
	}
	if cfg.MaxConcurrentSessions < 1 {
		return nil, errors.New("config: MAX_CONCURRENT_SESSIONS must be at least 1")
	}

	return &cfg, nil
}

// AccessTTL parses AccessTokenTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.AccessTokenTTL, 15*time.Minute)
}

// RefreshTTL parses RefreshTokenTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.RefreshTokenTTL, 168*time.Hour)
}

// Window parses AttemptWindow as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) Window() time.Duration {
	return durationOr(c.AttemptWindow, 15*time.Minute)
}

// Lockout parses LockoutDuration as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) Lockout() time.Duration {
	return durationOr(c.LockoutDuration, 15*time.Minute)
}

// Retention parses ThrottleRetention as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) Retention() time.Duration {
	return durationOr(c.ThrottleRetention, 24*time.Hour)
}

// SweepInterval parses ThrottleSweepInterval as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	return durationOr(c.ThrottleSweepInterval, time.Hour)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the auth event stream is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
