package main

import (
	"fmt"

	"github.com/0xmhha/show-indexer/pkg/storage"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/urfave/cli/v2"
)

type demoShow struct {
	name        string
	description string
	location    string
	metadataURI string
	start, end  uint64
	tickets     uint64
	price       string
	sold        uint64
	active      bool
	organizer   string
}

var demoShowData = []demoShow{
	{"Demo Show One", "First demo show", "City Hall", "ipfs://demo1", 1735689600, 1735696800, 1000, "1000000000000000000", 10, true, "alice"},
	{"Demo Show Two", "Second demo show", "Opera House", "ipfs://demo2", 1735776000, 1735783200, 2000, "5000000000000000", 0, true, "bob"},
	{"Demo Show Three", "Third demo show", "Open Air Stage", "ipfs://demo3", 1735862400, 1735869600, 500, "2000000000000000000", 250, false, "carol"},
}

// demoShows returns the seed states with ids 1..n
func demoShows() []storage.ShowState {
	states := make([]storage.ShowState, 0, len(demoShowData))
	for i, d := range demoShowData {
		status := storage.ShowStatusUpcoming
		if d.active {
			status = storage.ShowStatusActive
		}
		states = append(states, storage.ShowState{
			ShowID:       u256.FromUint64(uint64(i + 1)),
			Name:         d.name,
			Description:  d.description,
			Location:     d.location,
			StartTime:    u256.FromUint64(d.start),
			EndTime:      u256.FromUint64(d.end),
			TotalTickets: u256.FromUint64(d.tickets),
			TicketPrice:  u256.MustParse(d.price),
			TicketsSold:  u256.FromUint64(d.sold),
			MetadataURI:  d.metadataURI,
			Status:       status,
			Organizer:    d.organizer,
		})
	}
	return states
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "write the demo shows to the database",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "migrate", Value: true, Usage: "apply the schema first"},
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
			store, err := openStore(c, cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			if c.Bool("migrate") {
				if err := store.Migrate(c.Context); err != nil {
					return err
				}
			}

			for _, state := range demoShows() {
				show, err := store.PutShow(c.Context, state)
				if err != nil {
					return fmt.Errorf("failed to seed show %s: %w", state.ShowID, err)
				}
				fmt.Fprintf(c.App.Writer, "seeded show %s (%s)\n", show.ID, show.Name)
			}
			return nil
		},
	}
}
