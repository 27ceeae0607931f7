// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
// Each binary has its own struct; all of them embed Common.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Common holds settings shared by every service.
type Common struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// IsDevelopment returns true if running in development mode.
func (c *Common) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Common) IsProduction() bool {
	return c.AppEnv == "production"
}

// Gateway configures the API gateway.
type Gateway struct {
	Common

	AppPort int `env:"APP_PORT" envDefault:"3000"`

	// Upstream services
	AuthServiceURL string `env:"AUTH_SERVICE_URL" envDefault:"http://auth-service:9000"`
	AIServiceURL   string `env:"AI_SERVICE_URL" envDefault:"http://ai-service:8000"`

	// Zero means no client-side timeout, matching the default HTTP client.
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"0s"`

	// Database (PostgreSQL), optional. Only used for readiness.
	DatabaseURL string `env:"DATABASE_URL"`

	// Redis, optional. Carries the alert feed between services.
	RedisURL string `env:"REDIS_URL"`

	// Comma-separated list of allowed origins, "*" allows any.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Request body size limit in bytes (default 25MB, two media files plus form overhead)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"26214400"`
}

// Auth configures the token-issuing auth stub.
type Auth struct {
	Common

	AppPort int `env:"APP_PORT" envDefault:"9000"`

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
}

// AI configures the analysis service stub.
type AI struct {
	Common

	AppPort int `env:"APP_PORT" envDefault:"8000"`

	AuthServiceURL string        `env:"AUTH_SERVICE_URL" envDefault:"http://auth-service:9000"`
	AuthTimeout    time.Duration `env:"AUTH_TIMEOUT" envDefault:"3s"`

	MinAudioScore float64 `env:"MIN_AUDIO_SCORE" envDefault:"0.7"`
	MinVideoScore float64 `env:"MIN_VIDEO_SCORE" envDefault:"0.5"`
	MaxFileSize   int64   `env:"MAX_FILE_SIZE" envDefault:"10485760"`

	RedisURL string `env:"REDIS_URL"`

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Gateway) GetCORSAllowedOrigins() []string {
	return splitOrigins(c.CORSAllowedOrigins)
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *AI) GetCORSAllowedOrigins() []string {
	return splitOrigins(c.CORSAllowedOrigins)
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}

	origins := strings.Split(raw, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// LoadGateway parses environment variables into a Gateway config.
func LoadGateway() (*Gateway, error) {
	cfg := &Gateway{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validateServiceURL("AUTH_SERVICE_URL", cfg.AuthServiceURL); err != nil {
		return nil, err
	}
	if err := validateServiceURL("AI_SERVICE_URL", cfg.AIServiceURL); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAuth parses environment variables into an Auth config.
// Returns an error if JWT_SECRET is missing or empty.
func LoadAuth() (*Auth, error) {
	cfg := &Auth{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadAI parses environment variables into an AI config.
func LoadAI() (*AI, error) {
	cfg := &AI{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validateServiceURL("AUTH_SERVICE_URL", cfg.AuthServiceURL); err != nil {
		return nil, err
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", cfg.MaxFileSize)
	}
	return cfg, nil
}

func validateServiceURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s: scheme must be http or https", key)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s: missing host", key)
	}
	return nil
}
