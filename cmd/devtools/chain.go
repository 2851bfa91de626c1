package main

import (
	"encoding/json"
	"fmt"

	"github.com/0xmhha/show-indexer/internal/config"
	"github.com/0xmhha/show-indexer/internal/constants"
	"github.com/0xmhha/show-indexer/pkg/client"
	"github.com/0xmhha/show-indexer/pkg/journal"
	"github.com/0xmhha/show-indexer/pkg/showmanager"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
)

func updateShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "update-show",
		Usage:     "send a signed updateShow transaction",
		ArgsUsage: "<id> <name> <metadata-uri>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "signer",
				Value: constants.DefaultSignerName,
				Usage: "registered signer name",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return cli.Exit("usage: update-show <id> <name> <metadata-uri>", 2)
			}
			id, err := u256.Parse(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("invalid show id: %w", err)
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if err := config.ValidateAddress(cfg.Contracts.ShowManager); err != nil {
				return fmt.Errorf("invalid SHOW_MANAGER_ADDRESS: %w", err)
			}
			log, err := newLogger(c)
			if err != nil {
				return err
			}

			signers, err := client.LoadSigners(cfg.Signers, log)
			if err != nil {
				return err
			}
			pool, err := client.NewPool(c.Context, &client.PoolConfig{
				Endpoint: cfg.RPC.WSEndpoint,
				Timeout:  cfg.RPC.Timeout,
				Logger:   log,
				Signers:  signers,
			})
			if err != nil {
				return err
			}
			defer pool.Close()

			conn, err := pool.ConnectionFor(c.Context, c.String("signer"))
			if err != nil {
				return err
			}
			defer conn.Close()

			data, err := showmanager.PackUpdateShow(id.Big(), c.Args().Get(1), c.Args().Get(2))
			if err != nil {
				return err
			}
			hash, err := conn.Transact(c.Context, common.HexToAddress(cfg.Contracts.ShowManager), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "updateShow(%s) sent from %s: %s\n", id, conn.From().Hex(), hash.Hex())
			return nil
		},
	}
}

func droppedCommand() *cli.Command {
	return &cli.Command{
		Name:  "dropped",
		Usage: "list events dropped because show state could not be read",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: constants.DefaultJournalListLimit, Usage: "maximum entries, newest first"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log, err := newLogger(c)
			if err != nil {
				return err
			}
			j, err := journal.Open(cfg.Journal.Path, log)
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.List(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(c.App.Writer, "no dropped events")
				return nil
			}
			enc := json.NewEncoder(c.App.Writer)
			for _, e := range entries {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
