package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xmhha/show-indexer/internal/config"
	"github.com/0xmhha/show-indexer/internal/constants"
	"github.com/0xmhha/show-indexer/internal/logger"
	"github.com/0xmhha/show-indexer/pkg/api"
	"github.com/0xmhha/show-indexer/pkg/cache"
	"github.com/0xmhha/show-indexer/pkg/client"
	"github.com/0xmhha/show-indexer/pkg/eventbus"
	"github.com/0xmhha/show-indexer/pkg/events"
	"github.com/0xmhha/show-indexer/pkg/journal"
	"github.com/0xmhha/show-indexer/pkg/showmanager"
	"github.com/0xmhha/show-indexer/pkg/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	// Version information (injected at build time)
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to configuration file (YAML)")
		showVersion = flag.Bool("version", false, "Show version information and exit")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		logFormat   = flag.String("log-format", "", "Log format (json, console)")
		enableAPI   = flag.Bool("api", false, "Enable API server")
		apiPort     = flag.Int("api-port", 0, "API server port")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("show-indexer version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", buildTime)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *logLevel, *logFormat, *enableAPI, *apiPort)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("Starting show indexer",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_time", buildTime),
		zap.String("ws_endpoint", cfg.RPC.WSEndpoint),
		zap.String("show_manager", cfg.Contracts.ShowManager),
		zap.Bool("print_raw_logs", cfg.Flags.PrintRawLogs),
		zap.Bool("print_unknown_logs", cfg.Flags.PrintUnknownLogs),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Indexer stopped with error", zap.Error(err))
		log.Sync() //nolint:errcheck
		os.Exit(1)
	}
	log.Info("Indexer stopped")
}

// run wires every component and blocks until ctx is cancelled or the
// listener or API server fails
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	signers, err := client.LoadSigners(cfg.Signers, log)
	if err != nil {
		return err
	}

	pool, err := client.NewPool(ctx, &client.PoolConfig{
		Endpoint: cfg.RPC.WSEndpoint,
		Timeout:  cfg.RPC.Timeout,
		Logger:   log,
		Signers:  signers,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := storage.Open(ctx, cfg.Database.URL, cfg.Database.MaxConns, log)
	if err != nil {
		return err
	}
	defer store.Close()
	if cfg.ShouldMigrate() {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	var showCache *cache.ShowCache
	if cfg.Cache.RedisURL != "" {
		showCache, err = cache.Dial(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL, log)
		if err != nil {
			log.Warn("Cache unavailable, continuing without it", zap.Error(err))
			showCache = nil
		} else {
			defer showCache.Close()
		}
	}

	local := eventbus.NewLocalBus()
	external, err := eventbus.NewFromConfig(ctx, cfg.EventBus, log)
	if err != nil {
		return err
	}
	bus := eventbus.NewMulti(log, local, external)
	defer bus.Close()

	var dropJournal *journal.Journal
	if cfg.Journal.Path != "" {
		dropJournal, err = journal.Open(cfg.Journal.Path, log)
		if err != nil {
			return err
		}
		defer dropJournal.Close()
	}

	metrics := events.NewMetrics(nil)
	caller := showmanager.NewCaller(pool.Reader(), common.HexToAddress(cfg.Contracts.ShowManager))

	routerOpts := []events.RouterOption{
		events.WithPublisher(bus),
		events.WithMetrics(metrics),
		events.WithLogger(log),
	}
	apiOpts := []api.Option{
		api.WithPublisher(bus),
		api.WithLocalBus(local),
	}
	if showCache != nil {
		routerOpts = append(routerOpts, events.WithCache(showCache))
		apiOpts = append(apiOpts, api.WithCache(showCache))
	}
	if dropJournal != nil {
		routerOpts = append(routerOpts, events.WithJournal(dropJournal))
		apiOpts = append(apiOpts, api.WithJournal(dropJournal))
	}

	router := events.NewRouter(events.RouterConfig{
		Contract:         common.HexToAddress(cfg.Contracts.ShowManager),
		PrintRawLogs:     cfg.Flags.PrintRawLogs,
		PrintUnknownLogs: cfg.Flags.PrintUnknownLogs,
	}, events.NewDecoder(caller), store, routerOpts...)
	listener := events.NewListener(pool.Listener(), router, metrics, log)

	var apiErr chan error
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.NewServer(api.ConfigFromApp(cfg.API), log, store, apiOpts...)
		if err != nil {
			return err
		}
		apiErr = make(chan error, 1)
		go func() {
			if err := apiServer.Start(); err != nil {
				apiErr <- err
			}
		}()
	}

	listenerDone, stopListener := startListener(ctx, listener)
	runErr := supervise(ctx, log, listenerDone, stopListener, apiErr)

	log.Info("Shutting down gracefully...")
	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		defer cancel()
		if err := apiServer.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop API server gracefully", zap.Error(err))
		}
	}

	return runErr
}

// loadConfig loads .env, then the YAML file and environment
func loadConfig(configFile string) (*config.Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return config.Load(configFile)
}

// loadDotEnv loads environment variables from a .env file if it exists
func loadDotEnv() error {
	info, err := os.Stat(".env")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat .env: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf(".env exists but is a directory")
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// applyFlags applies command-line overrides to the configuration
func applyFlags(cfg *config.Config, logLevel, logFormat string, enableAPI bool, apiPort int) {
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if enableAPI {
		cfg.API.Enabled = true
	}
	if apiPort > 0 {
		cfg.API.Port = apiPort
	}
}
