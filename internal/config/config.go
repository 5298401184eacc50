// Package config provides configuration management for the license server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// Config holds license server configuration. Values come from an optional
// YAML file, overridden by environment variables.
type Config struct {
	Environment   Environment `yaml:"environment,omitempty"`
	Port          string      `yaml:"port,omitempty"`
	DatabaseURL   string      `yaml:"database_url,omitempty"`
	JWTSecret     string      `yaml:"jwt_secret,omitempty"`
	PortalBaseURL string      `yaml:"portal_base_url,omitempty"`
	RedisURL      string      `yaml:"redis_url,omitempty"`

	// Rate limiting for the validation endpoint.
	RateLimitRequests int64         `yaml:"rate_limit_requests,omitempty"`
	RateLimitPeriod   time.Duration `yaml:"rate_limit_period,omitempty"`

	// TokenDuration is the session token lifetime.
	TokenDuration time.Duration `yaml:"token_duration,omitempty"`

	// AllowedOrigins for CORS. Empty allows all origins in development.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// Default returns a Config with development defaults.
func Default() Config {
	return Config{
		Environment:       EnvDevelopment,
		Port:              "3000",
		PortalBaseURL:     "https://go4itsports.com",
		RateLimitRequests: 100,
		RateLimitPeriod:   15 * time.Minute,
		TokenDuration:     24 * time.Hour,
	}
}

// Load builds the configuration from the optional file at path (skipped when
// empty or missing) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if env := Environment(os.Getenv("ENV")); env != "" {
		c.Environment = env
	}
	switch c.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		c.Environment = EnvDevelopment
	}

	c.Port = getEnvString("PORT", c.Port)
	c.DatabaseURL = getEnvString("DATABASE_URL", c.DatabaseURL)
	c.JWTSecret = getEnvString("JWT_SECRET", c.JWTSecret)
	c.PortalBaseURL = strings.TrimSuffix(getEnvString("PORTAL_BASE_URL", c.PortalBaseURL), "/")
	c.RedisURL = getEnvString("REDIS_URL", c.RedisURL)

	c.RateLimitRequests = int64(getEnvInt("RATE_LIMIT_REQUESTS", int(c.RateLimitRequests)))
	c.RateLimitPeriod = getEnvDuration("RATE_LIMIT_PERIOD", c.RateLimitPeriod)
	c.TokenDuration = getEnvDuration("TOKEN_DURATION", c.TokenDuration)

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.RateLimitRequests <= 0 {
		return errors.New("rate limit requests must be positive")
	}
	if c.RateLimitPeriod <= 0 {
		return errors.New("rate limit period must be positive")
	}
	return nil
}

// IsProduction returns true for the production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// getEnvString reads a string from an environment variable, returning the
// default if unset.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer from an environment variable, returning the
// default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvDuration reads a duration from an environment variable, returning
// the default if unset or invalid.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
