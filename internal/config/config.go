package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/0xmhha/show-indexer/internal/constants"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the indexer
type Config struct {
	RPC       RPCConfig       `yaml:"rpc"`
	Database  DatabaseConfig  `yaml:"database"`
	Contracts ContractsConfig `yaml:"contracts"`
	Log       LogConfig       `yaml:"log"`
	Flags     FlagsConfig     `yaml:"flags"`
	Signers   SignersConfig   `yaml:"signers"`
	Cache     CacheConfig     `yaml:"cache"`
	API       APIConfig       `yaml:"api"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Journal   JournalConfig   `yaml:"journal"`
}

// RPCConfig holds node connection configuration
type RPCConfig struct {
	// WSEndpoint is the websocket endpoint used by both read connections
	WSEndpoint string        `yaml:"ws_endpoint"`
	Timeout    time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	// Migrate applies the embedded schema on startup
	Migrate *bool `yaml:"migrate"`
}

// ContractsConfig holds the tracked contract addresses
type ContractsConfig struct {
	ShowManager string `yaml:"show_manager"`
	DIDRegistry string `yaml:"did_registry"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// FlagsConfig holds the router verbosity flags
type FlagsConfig struct {
	// PrintRawLogs echoes every incoming log and reports unrecognized
	// events from the tracked contract
	PrintRawLogs bool `yaml:"print_raw_logs"`
	// PrintUnknownLogs reports logs from addresses that are not tracked
	PrintUnknownLogs bool `yaml:"print_unknown_logs"`
}

// SignersConfig holds named signer configuration
type SignersConfig struct {
	File       string `yaml:"file"`
	Persist    bool   `yaml:"persist"`
	PrivateKey string `yaml:"-"`
}

// CacheConfig holds show cache configuration
type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// APIConfig holds API server configuration
type APIConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	EnableGraphQL   bool     `yaml:"enable_graphql"`
	EnableWebSocket bool     `yaml:"enable_websocket"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	RateLimit       int      `yaml:"rate_limit"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
}

// EventBusConfig holds post-commit publishing configuration
type EventBusConfig struct {
	// Type is the external sink: "none", "redis", "kafka", "rabbitmq"
	Type  string              `yaml:"type"`
	Redis EventBusRedisConfig `yaml:"redis"`
	Kafka EventBusKafkaConfig `yaml:"kafka"`
	AMQP  EventBusAMQPConfig  `yaml:"amqp"`
}

// EventBusRedisConfig holds Redis Pub/Sub configuration
type EventBusRedisConfig struct {
	// URL falls back to the cache redis URL when empty
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

// EventBusKafkaConfig holds Kafka configuration
type EventBusKafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// EventBusAMQPConfig holds RabbitMQ configuration
type EventBusAMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// JournalConfig holds the dropped-event journal configuration
type JournalConfig struct {
	// Path is the pebble directory; empty disables the journal
	Path string `yaml:"path"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	// RPC defaults
	if c.RPC.WSEndpoint == "" {
		c.RPC.WSEndpoint = constants.DefaultWSEndpoint
	}
	if c.RPC.Timeout == 0 {
		c.RPC.Timeout = constants.DefaultRPCTimeout
	}

	// Database defaults
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = constants.DefaultDatabaseMaxConns
	}
	if c.Database.Migrate == nil {
		migrate := true
		c.Database.Migrate = &migrate
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	// Signer defaults
	if c.Signers.File == "" {
		c.Signers.File = constants.DefaultSignersFile
	}

	// Cache defaults
	if c.Cache.TTL == 0 {
		c.Cache.TTL = constants.DefaultCacheTTL
	}

	// API defaults
	if c.API.Host == "" {
		c.API.Host = constants.DefaultAPIHost
	}
	if c.API.Port == 0 {
		c.API.Port = constants.DefaultAPIPort
	}
	if c.API.AllowedOrigins == nil {
		c.API.AllowedOrigins = []string{"*"}
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = constants.DefaultRateLimitPerSecond
	}
	if c.API.RateLimitBurst == 0 {
		c.API.RateLimitBurst = constants.DefaultRateLimitBurst
	}

	// EventBus defaults
	if c.EventBus.Type == "" {
		c.EventBus.Type = constants.DefaultEventBusType
	}
	if c.EventBus.Redis.Channel == "" {
		c.EventBus.Redis.Channel = constants.DefaultEventBusRedisChannel
	}
	if c.EventBus.Redis.URL == "" {
		c.EventBus.Redis.URL = c.Cache.RedisURL
	}
	if c.EventBus.Kafka.Topic == "" {
		c.EventBus.Kafka.Topic = constants.DefaultEventBusKafkaTopic
	}
	if c.EventBus.AMQP.Exchange == "" {
		c.EventBus.AMQP.Exchange = constants.DefaultEventBusAMQPExchange
	}
}

// ParseFlag accepts "1" or anything strconv.ParseBool accepts
func ParseFlag(value string) (bool, error) {
	if strings.TrimSpace(value) == "1" {
		return true, nil
	}
	return strconv.ParseBool(strings.TrimSpace(value))
}

// splitList splits a comma-separated list, dropping empty items
func splitList(value string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// RPC configuration
	if endpoint := os.Getenv("WS_RPC_URL"); endpoint != "" {
		c.RPC.WSEndpoint = endpoint
	}
	if timeout := os.Getenv("RPC_TIMEOUT"); timeout != "" {
		duration, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid RPC_TIMEOUT: %w", err)
		}
		c.RPC.Timeout = duration
	}

	// Database configuration
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		c.Database.URL = dbURL
	}
	if maxConns := os.Getenv("DATABASE_MAX_CONNS"); maxConns != "" {
		val, err := strconv.ParseInt(maxConns, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_MAX_CONNS: %w", err)
		}
		c.Database.MaxConns = int32(val)
	}
	if migrate := os.Getenv("DATABASE_MIGRATE"); migrate != "" {
		val, err := ParseFlag(migrate)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_MIGRATE: %w", err)
		}
		c.Database.Migrate = &val
	}

	// Contracts
	if addr := os.Getenv("SHOW_MANAGER_ADDRESS"); addr != "" {
		c.Contracts.ShowManager = strings.TrimSpace(addr)
	}
	if addr := os.Getenv("DID_REGISTRY_ADDRESS"); addr != "" {
		c.Contracts.DIDRegistry = strings.TrimSpace(addr)
	}

	// Log configuration
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		c.Log.File = file
	}

	// Router flags
	if raw := os.Getenv("PRINT_RAW_LOGS"); raw != "" {
		val, err := ParseFlag(raw)
		if err != nil {
			return fmt.Errorf("invalid PRINT_RAW_LOGS: %w", err)
		}
		c.Flags.PrintRawLogs = val
	}
	if unknown := os.Getenv("PRINT_UNKNOWN_LOGS"); unknown != "" {
		val, err := ParseFlag(unknown)
		if err != nil {
			return fmt.Errorf("invalid PRINT_UNKNOWN_LOGS: %w", err)
		}
		c.Flags.PrintUnknownLogs = val
	}

	// Signers
	if key := os.Getenv("PRIVATE_KEY"); key != "" {
		c.Signers.PrivateKey = key
	}
	if file := os.Getenv("SIGNERS_FILE"); file != "" {
		c.Signers.File = file
	}
	if persist := os.Getenv("SIGNERS_PERSIST"); persist != "" {
		val, err := ParseFlag(persist)
		if err != nil {
			return fmt.Errorf("invalid SIGNERS_PERSIST: %w", err)
		}
		c.Signers.Persist = val
	}

	// Cache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Cache.RedisURL = redisURL
	}
	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		duration, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid CACHE_TTL: %w", err)
		}
		c.Cache.TTL = duration
	}

	// API configuration
	if enabled := os.Getenv("API_ENABLED"); enabled != "" {
		val, err := ParseFlag(enabled)
		if err != nil {
			return fmt.Errorf("invalid API_ENABLED: %w", err)
		}
		c.API.Enabled = val
	}
	if host := os.Getenv("API_HOST"); host != "" {
		c.API.Host = host
	}
	if port := os.Getenv("API_PORT"); port != "" {
		val, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid API_PORT: %w", err)
		}
		c.API.Port = val
	}
	if origins := os.Getenv("API_CORS_ORIGINS"); origins != "" {
		list := splitList(origins)
		if len(list) == 0 {
			list = []string{"*"}
		}
		c.API.AllowedOrigins = list
	}
	if limit := os.Getenv("API_RATE_LIMIT"); limit != "" {
		val, err := strconv.Atoi(limit)
		if err != nil {
			return fmt.Errorf("invalid API_RATE_LIMIT: %w", err)
		}
		c.API.RateLimit = val
	}

	// EventBus configuration
	if ebType := os.Getenv("EVENTBUS_TYPE"); ebType != "" {
		c.EventBus.Type = ebType
	}
	if channel := os.Getenv("EVENTBUS_REDIS_CHANNEL"); channel != "" {
		c.EventBus.Redis.Channel = channel
	}
	if brokers := os.Getenv("EVENTBUS_KAFKA_BROKERS"); brokers != "" {
		c.EventBus.Kafka.Brokers = splitList(brokers)
	}
	if topic := os.Getenv("EVENTBUS_KAFKA_TOPIC"); topic != "" {
		c.EventBus.Kafka.Topic = topic
	}
	if amqpURL := os.Getenv("EVENTBUS_AMQP_URL"); amqpURL != "" {
		c.EventBus.AMQP.URL = amqpURL
	}
	if exchange := os.Getenv("EVENTBUS_AMQP_EXCHANGE"); exchange != "" {
		c.EventBus.AMQP.Exchange = exchange
	}

	// Journal
	if path := os.Getenv("JOURNAL_PATH"); path != "" {
		c.Journal.Path = path
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// ValidateAddress checks a 0x-prefixed, 42-character hex address
func ValidateAddress(addr string) error {
	if len(addr) != constants.AddressLength {
		return fmt.Errorf("address %q must be %d characters", addr, constants.AddressLength)
	}
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return fmt.Errorf("address %q must start with 0x", addr)
	}
	if _, err := hex.DecodeString(addr[2:]); err != nil {
		return fmt.Errorf("address %q is not hex: %w", addr, err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate RPC config
	endpoint, err := url.Parse(c.RPC.WSEndpoint)
	if err != nil {
		return fmt.Errorf("invalid WS_RPC_URL: %w", err)
	}
	if endpoint.Scheme != "ws" && endpoint.Scheme != "wss" {
		return fmt.Errorf("WS_RPC_URL must use ws:// or wss://, got %q", c.RPC.WSEndpoint)
	}
	if c.RPC.Timeout <= 0 {
		return fmt.Errorf("RPC timeout must be positive")
	}

	// Validate database config
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("database max connections must be positive")
	}

	// Validate contracts
	if c.Contracts.ShowManager == "" {
		return fmt.Errorf("SHOW_MANAGER_ADDRESS is required")
	}
	if err := ValidateAddress(c.Contracts.ShowManager); err != nil {
		return fmt.Errorf("invalid SHOW_MANAGER_ADDRESS: %w", err)
	}
	if c.Contracts.DIDRegistry != "" {
		if err := ValidateAddress(c.Contracts.DIDRegistry); err != nil {
			return fmt.Errorf("invalid DID_REGISTRY_ADDRESS: %w", err)
		}
	}

	// Validate log config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}

	validLogFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, console", c.Log.Format)
	}

	// Validate cache config
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	// Validate API config
	if c.API.Enabled {
		if c.API.Port < constants.MinPort || c.API.Port > constants.MaxPort {
			return fmt.Errorf("invalid API port %d", c.API.Port)
		}
		if c.API.RateLimit < 0 {
			return fmt.Errorf("API rate limit cannot be negative")
		}
	}

	// Validate EventBus config
	validEventBusTypes := map[string]bool{
		"none":     true,
		"redis":    true,
		"kafka":    true,
		"rabbitmq": true,
	}
	if !validEventBusTypes[c.EventBus.Type] {
		return fmt.Errorf("invalid eventbus type %q, must be one of: none, redis, kafka, rabbitmq", c.EventBus.Type)
	}
	switch c.EventBus.Type {
	case "redis":
		if c.EventBus.Redis.URL == "" {
			return fmt.Errorf("redis eventbus requires REDIS_URL")
		}
	case "kafka":
		if len(c.EventBus.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka eventbus enabled but no brokers configured")
		}
	case "rabbitmq":
		if c.EventBus.AMQP.URL == "" {
			return fmt.Errorf("rabbitmq eventbus requires EVENTBUS_AMQP_URL")
		}
	}

	return nil
}

// ShouldMigrate reports whether the embedded schema is applied on startup
func (c *Config) ShouldMigrate() bool {
	return c.Database.Migrate == nil || *c.Database.Migrate
}

// Load is a convenience method that loads configuration in the following order:
// 1. Set defaults
// 2. Load from file (if provided)
// 3. Load from environment variables (override file)
// 4. Validate
func Load(configFile string) (*Config, error) {
	cfg := NewConfig()

	// Load from file if provided
	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Load from environment variables (override file)
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Set defaults for any missing values
	cfg.SetDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
