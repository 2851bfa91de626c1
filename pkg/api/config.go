package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/0xmhha/show-indexer/internal/config"
	"github.com/0xmhha/show-indexer/internal/constants"
)

// Config holds API server configuration
type Config struct {
	Host string
	Port int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int

	EnableGraphQL   bool
	GraphQLPath     string
	EnableWebSocket bool
	WebSocketPath   string

	AllowedOrigins []string

	EnableRateLimit    bool
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// DefaultConfig returns a config with every endpoint enabled
func DefaultConfig() *Config {
	return &Config{
		Host:               constants.DefaultAPIHost,
		Port:               constants.DefaultAPIPort,
		ReadTimeout:        constants.DefaultReadTimeout,
		WriteTimeout:       constants.DefaultWriteTimeout,
		IdleTimeout:        constants.DefaultIdleTimeout,
		ShutdownTimeout:    constants.DefaultShutdownTimeout,
		MaxHeaderBytes:     constants.DefaultMaxHeaderBytes,
		EnableGraphQL:      true,
		GraphQLPath:        constants.DefaultGraphQLPath,
		EnableWebSocket:    true,
		WebSocketPath:      constants.DefaultWebSocketPath,
		AllowedOrigins:     []string{"*"},
		EnableRateLimit:    true,
		RateLimitPerSecond: constants.DefaultRateLimitPerSecond,
		RateLimitBurst:     constants.DefaultRateLimitBurst,
	}
}

// ConfigFromApp builds a server config from the application's API section
func ConfigFromApp(app config.APIConfig) *Config {
	cfg := DefaultConfig()
	cfg.Host = app.Host
	cfg.Port = app.Port
	cfg.EnableGraphQL = app.EnableGraphQL
	cfg.EnableWebSocket = app.EnableWebSocket
	cfg.AllowedOrigins = app.AllowedOrigins
	cfg.EnableRateLimit = app.RateLimit > 0
	cfg.RateLimitPerSecond = float64(app.RateLimit)
	cfg.RateLimitBurst = app.RateLimitBurst
	return cfg
}

// Address returns the listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if c.Port < constants.MinPort || c.Port > constants.MaxPort {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.EnableRateLimit && (c.RateLimitPerSecond <= 0 || c.RateLimitBurst <= 0) {
		return fmt.Errorf("invalid rate limit: %v/s burst %d", c.RateLimitPerSecond, c.RateLimitBurst)
	}
	if c.EnableGraphQL && c.GraphQLPath == "" {
		return errors.New("graphql path cannot be empty")
	}
	if c.EnableWebSocket && c.WebSocketPath == "" {
		return errors.New("websocket path cannot be empty")
	}
	return nil
}
