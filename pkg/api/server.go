// Package api serves the show read/write HTTP API, GraphQL queries, the
// live WebSocket feed, health and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/0xmhha/show-indexer/pkg/api/graphql"
	apimiddleware "github.com/0xmhha/show-indexer/pkg/api/middleware"
	"github.com/0xmhha/show-indexer/pkg/api/websocket"
	"github.com/0xmhha/show-indexer/pkg/eventbus"
	"github.com/0xmhha/show-indexer/pkg/storage"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ShowStore is the storage the API reads and writes
type ShowStore interface {
	GetShowByID(ctx context.Context, id u256.Uint256) (*storage.ShowSnapshot, error)
	ListShows(ctx context.Context, limit, offset int) ([]storage.ShowSnapshot, error)
	PutShow(ctx context.Context, state storage.ShowState) (*storage.ShowSnapshot, error)
	UpdateShow(ctx context.Context, id u256.Uint256, patch storage.ShowPatch) (*storage.ShowSnapshot, error)
	DeleteShow(ctx context.Context, id u256.Uint256) error
	Ping(ctx context.Context) error
}

// ShowCache is the read-through cache in front of ShowStore
type ShowCache interface {
	Get(ctx context.Context, id u256.Uint256) (*storage.ShowSnapshot, bool, error)
	Set(ctx context.Context, show *storage.ShowSnapshot) error
	Delete(ctx context.Context, id u256.Uint256) error
	Ping(ctx context.Context) error
}

// DropCounter reports how many events the ingestion path has dropped
type DropCounter interface {
	Len() uint64
}

// Option configures optional server dependencies
type Option func(*Server)

// WithCache serves reads through cache
func WithCache(cache ShowCache) Option {
	return func(s *Server) { s.cache = cache }
}

// WithPublisher announces API writes on publisher
func WithPublisher(publisher eventbus.Publisher) Option {
	return func(s *Server) { s.publisher = publisher }
}

// WithLocalBus feeds the WebSocket hub from bus and reports its stats
func WithLocalBus(bus *eventbus.LocalBus) Option {
	return func(s *Server) { s.localBus = bus }
}

// WithJournal reports the dropped-event count on /health
func WithJournal(journal DropCounter) Option {
	return func(s *Server) { s.journal = journal }
}

// WithGatherer serves /metrics from gatherer instead of the default registry
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = gatherer }
}

// Server represents the API server
type Server struct {
	config    *Config
	logger    *zap.Logger
	store     ShowStore
	cache     ShowCache
	publisher eventbus.Publisher
	localBus  *eventbus.LocalBus
	journal   DropCounter
	gatherer  prometheus.Gatherer
	startTime time.Time

	router   *chi.Mux
	server   *http.Server
	limiter  *apimiddleware.RateLimiter
	wsServer *websocket.Server
	wsSub    *eventbus.Subscription
	cancel   context.CancelFunc
}

// NewServer creates a new API server
func NewServer(config *Config, logger *zap.Logger, store ShowStore, opts ...Option) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:    config,
		logger:    logger.Named("api"),
		store:     store,
		startTime: time.Now(),
		router:    chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		s.shutdownBackground()
		return nil, err
	}

	s.server = &http.Server{
		Addr:           config.Address(),
		Handler:        s.router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s, nil
}

// setupMiddleware configures the middleware stack
func (s *Server) setupMiddleware() {
	s.router.Use(apimiddleware.RequestID)
	s.router.Use(apimiddleware.Recovery(s.logger, s.middlewareError))
	s.router.Use(apimiddleware.Logger(s.logger))
	s.router.Use(apimiddleware.CORS(s.config.AllowedOrigins))

	if s.config.EnableRateLimit {
		s.limiter = apimiddleware.NewRateLimiter(s.config.RateLimitPerSecond, s.config.RateLimitBurst, s.logger)
		s.router.Use(s.limiter.Handler(s.middlewareError))
		s.logger.Info("rate limiting enabled",
			zap.Float64("rate_per_second", s.config.RateLimitPerSecond),
			zap.Int("burst", s.config.RateLimitBurst),
		)
	}
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() error {
	s.router.Get("/show/{id}", s.handleGetShow)
	s.router.Put("/show/{id}", s.handleUpdateShow)
	s.router.Delete("/show/{id}", s.handleDeleteShow)
	s.router.Post("/show", s.handleCreateShow)
	s.router.Get("/shows", s.handleListShows)

	s.router.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	} else {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, CodeNotFound, "route not found", nil)
	})

	if s.config.EnableGraphQL {
		gql, err := graphql.NewHandler(cachedReader{s}, s.logger)
		if err != nil {
			return fmt.Errorf("failed to create GraphQL handler: %w", err)
		}
		s.router.Handle(s.config.GraphQLPath, gql)
		s.logger.Info("GraphQL API enabled", zap.String("path", s.config.GraphQLPath))
	}

	if s.config.EnableWebSocket {
		s.wsServer = websocket.NewServer(s.logger)
		s.router.Get(s.config.WebSocketPath, s.wsServer.ServeHTTP)
		if s.localBus != nil {
			ctx, cancel := context.WithCancel(context.Background())
			s.cancel = cancel
			s.wsSub = s.localBus.Subscribe(0)
			go s.wsServer.Consume(ctx, s.wsSub)
		}
		s.logger.Info("WebSocket API enabled", zap.String("path", s.config.WebSocketPath))
	}

	return nil
}

// cachedReader exposes the cache-aware read path to GraphQL
type cachedReader struct {
	s *Server
}

func (c cachedReader) GetShowByID(ctx context.Context, id u256.Uint256) (*storage.ShowSnapshot, error) {
	return c.s.readShow(ctx, id)
}

func (c cachedReader) ListShows(ctx context.Context, limit, offset int) ([]storage.ShowSnapshot, error) {
	return c.s.store.ListShows(ctx, limit, offset)
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.logger.Info("starting API server",
		zap.String("address", s.config.Address()),
		zap.Bool("graphql", s.config.EnableGraphQL),
		zap.Bool("websocket", s.config.EnableWebSocket),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping API server")
	s.shutdownBackground()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped gracefully")
	return nil
}

// shutdownBackground stops the websocket feed and the limiter cleanup loop
func (s *Server) shutdownBackground() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.wsSub != nil {
		s.localBus.Unsubscribe(s.wsSub.ID)
	}
	if s.wsServer != nil {
		s.wsServer.Stop()
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Router returns the underlying chi router (for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
