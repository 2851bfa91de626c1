package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/0xmhha/show-indexer/internal/constants"
	"github.com/0xmhha/show-indexer/pkg/client"
	"github.com/urfave/cli/v2"
)

// openSigners loads the persisted signer file with write-through enabled.
// PRIVATE_KEY is ignored so that it is never copied into the file.
func openSigners(c *cli.Context) (*client.SignerRegistry, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	signersCfg := cfg.Signers
	signersCfg.PrivateKey = ""
	signersCfg.Persist = true
	if signersCfg.File == "" {
		signersCfg.File = constants.DefaultSignersFile
	}
	log, err := newLogger(c)
	if err != nil {
		return nil, err
	}
	return client.LoadSigners(signersCfg, log)
}

func printSigners(w io.Writer, signers []client.SignerInfo) error {
	if len(signers) == 0 {
		_, err := fmt.Fprintln(w, "no signers registered")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS")
	for _, s := range signers {
		fmt.Fprintf(tw, "%s\t%s\n", s.Name, s.Address.Hex())
	}
	return tw.Flush()
}

func signersCommand() *cli.Command {
	return &cli.Command{
		Name:  "signers",
		Usage: "manage named signing keys",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list registered signers",
				Action: func(c *cli.Context) error {
					r, err := openSigners(c)
					if err != nil {
						return err
					}
					return printSigners(c.App.Writer, r.List())
				},
			},
			{
				Name:      "add",
				Usage:     "register or replace a signer",
				ArgsUsage: "<name> <private-key>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: signers add <name> <private-key>", 2)
					}
					r, err := openSigners(c)
					if err != nil {
						return err
					}
					info, err := r.Register(c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "registered %s (%s)\n", info.Name, info.Address.Hex())
					return nil
				},
			},
			{
				Name:      "remove",
				Usage:     "remove a signer",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: signers remove <name>", 2)
					}
					r, err := openSigners(c)
					if err != nil {
						return err
					}
					name := c.Args().Get(0)
					removed, err := r.Unregister(name)
					if err != nil {
						return err
					}
					if !removed {
						return fmt.Errorf("%w: %q", client.ErrSignerNotFound, name)
					}
					fmt.Fprintf(c.App.Writer, "removed %s\n", name)
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "remove every signer",
				Action: func(c *cli.Context) error {
					r, err := openSigners(c)
					if err != nil {
						return err
					}
					if err := r.Clear(); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "all signers removed")
					return nil
				},
			},
		},
	}
}
