// Command devtools holds operator utilities for a show indexer deployment:
// seeding demo data, sending updateShow transactions, managing named signers,
// inspecting dropped events and applying migrations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xmhha/show-indexer/internal/config"
	"github.com/0xmhha/show-indexer/internal/logger"
	"github.com/0xmhha/show-indexer/pkg/storage"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "devtools",
		Usage: "show indexer developer tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to configuration file (YAML)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			seedCommand(),
			updateShowCommand(),
			signersCommand(),
			droppedCommand(),
			migrateCommand(),
		},
	}
}

// loadConfig reads .env, the YAML file and the environment. Validation is
// left to commands that need the full configuration.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := config.NewConfig()
	if path := c.String("config"); path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	return cfg, nil
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	return logger.New(c.String("log-level"), "console", "")
}

func openStore(c *cli.Context, cfg *config.Config, log *zap.Logger) (*storage.Store, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return storage.Open(c.Context, cfg.Database.URL, cfg.Database.MaxConns, log)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply the embedded database schema",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log, err := newLogger(c)
			if err != nil {
				return err
			}
			store, err := openStore(c, cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(c.Context); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "schema applied")
			return nil
		},
	}
}
