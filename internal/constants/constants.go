package constants

import "time"

// API Server Constants
const (
	// DefaultAPIHost is the default API server host
	DefaultAPIHost = "0.0.0.0"

	// DefaultAPIPort is the default API server port
	DefaultAPIPort = 3000

	// MinPort is the minimum valid port number
	MinPort = 1

	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// DefaultReadTimeout is the default HTTP read timeout
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is the default HTTP write timeout
	DefaultWriteTimeout = 15 * time.Second

	// DefaultIdleTimeout is the default HTTP idle timeout
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the default graceful shutdown timeout
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultMaxHeaderBytes is the default maximum request header size (1 MB)
	DefaultMaxHeaderBytes = 1 << 20

	// DefaultRateLimitPerSecond is the default rate limit (requests per second)
	DefaultRateLimitPerSecond = 100

	// DefaultRateLimitBurst is the default rate limit burst size
	DefaultRateLimitBurst = 200

	// DefaultMaxBodyBytes caps JSON request bodies
	DefaultMaxBodyBytes = 1 << 20
)

// API Paths
const (
	DefaultGraphQLPath   = "/graphql"
	DefaultWebSocketPath = "/ws"
	DefaultMetricsPath   = "/metrics"
	DefaultHealthPath    = "/health"
)

// Pagination Constants
const (
	// DefaultPageLimit is used when limit is absent or not positive
	DefaultPageLimit = 20

	// MaxPageLimit is the largest accepted page size
	MaxPageLimit = 1000
)

// Chain Constants
const (
	// DefaultWSEndpoint is the default node websocket endpoint
	DefaultWSEndpoint = "ws://127.0.0.1:8545"

	// DefaultRPCTimeout bounds dial and signer-side RPC calls.
	// The state refetch in the ingestion path is not bounded.
	DefaultRPCTimeout = 30 * time.Second

	// PriceDecimals is the precision recorded for ticket prices
	PriceDecimals = 18

	// AddressLength is the length of a 0x-prefixed hex address
	AddressLength = 42
)

// Storage Constants
const (
	// DefaultDatabaseMaxConns is the default pgx pool size
	DefaultDatabaseMaxConns = 10

	// DefaultJournalPath is the default pebble directory for dropped events
	DefaultJournalPath = "./data/journal"

	// DefaultJournalListLimit is the default number of dropped events listed
	DefaultJournalListLimit = 100
)

// Cache Constants
const (
	// DefaultCacheTTL is the lifetime of a cached show
	DefaultCacheTTL = time.Hour

	// ShowCachePrefix prefixes show cache keys
	ShowCachePrefix = "show"
)

// Signer Constants
const (
	// DefaultSignersFile is where named keys persist when enabled
	DefaultSignersFile = ".signers.json"

	// DefaultSignerName is the name the PRIVATE_KEY env override registers under
	DefaultSignerName = "default"

	// SignersFileMode restricts the persisted key file to the owner
	SignersFileMode = 0o600
)

// Event Bus Constants
const (
	DefaultEventBusType         = "none"
	DefaultEventBusRedisChannel = "show-indexer:events"
	DefaultEventBusKafkaTopic   = "show-indexer-events"
	DefaultEventBusAMQPExchange = "show-indexer"

	// DefaultPublishTimeout bounds a single post-commit publish
	DefaultPublishTimeout = 5 * time.Second
)

// WebSocket Constants
const (
	// DefaultWriteWait is the time allowed to write a message to the peer
	DefaultWriteWait = 10 * time.Second

	// DefaultPongWait is the time allowed to read the next pong message
	DefaultPongWait = 60 * time.Second

	// DefaultPingPeriod must be less than DefaultPongWait
	DefaultPingPeriod = (DefaultPongWait * 9) / 10

	// DefaultMaxMessageSize is the maximum message size allowed from peer
	DefaultMaxMessageSize = 512

	// DefaultClientSendBuffer is the per-client outbound queue length
	DefaultClientSendBuffer = 256
)
