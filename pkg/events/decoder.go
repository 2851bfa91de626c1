package events

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/0xmhha/show-indexer/pkg/showmanager"
	"github.com/0xmhha/show-indexer/pkg/storage"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrStateRead is returned when the on-chain getShow call fails
	ErrStateRead = errors.New("on-chain state read failed")

	// ErrDecode is returned when a log or a getShow result cannot be mapped
	ErrDecode = errors.New("event decode failed")
)

// ShowReader reads the current state of a show from the chain
type ShowReader interface {
	GetShow(ctx context.Context, showID *big.Int) (*showmanager.Show, error)
}

// Decoder maps ShowCreated logs to the three storage records
type Decoder struct {
	reader ShowReader
	now    func() time.Time
}

// NewDecoder creates a decoder reading show state through reader
func NewDecoder(reader ShowReader) *Decoder {
	return &Decoder{reader: reader, now: func() time.Time { return time.Now().UTC() }}
}

// Decode extracts the ShowCreated fields from a log
func (d *Decoder) Decode(log *types.Log) (*showmanager.ShowCreated, error) {
	ev, err := showmanager.ParseShowCreated(log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return ev, nil
}

// Resolve fetches the show named by ev and builds its records. The records
// are keyed by the event's show id.
func (d *Decoder) Resolve(ctx context.Context, ev *showmanager.ShowCreated) (storage.ShowRecords, error) {
	showID, err := u256.FromBig(ev.ShowID)
	if err != nil {
		return storage.ShowRecords{}, fmt.Errorf("%w: show id: %w", ErrDecode, err)
	}

	show, err := d.reader.GetShow(ctx, ev.ShowID)
	if err != nil {
		return storage.ShowRecords{}, fmt.Errorf("%w: show %s: %w", ErrStateRead, showID, err)
	}

	state, err := stateFromShow(showID, show, ev.Raw.Address.Hex())
	if err != nil {
		return storage.ShowRecords{}, err
	}

	txHash := ev.Raw.TxHash.Hex()
	block := u256.FromUint64(ev.Raw.BlockNumber)
	logIndex := u256.FromUint64(uint64(ev.Raw.Index))
	meta := storage.EventMeta{TxHash: &txHash, BlockNumber: &block, LogIndex: &logIndex}

	return storage.BuildRecords(state, meta, d.now()), nil
}

func stateFromShow(showID u256.Uint256, show *showmanager.Show, organizer string) (storage.ShowState, error) {
	state := storage.ShowState{
		ShowID:      showID,
		Name:        show.Name,
		Description: show.Description,
		Location:    show.Location,
		MetadataURI: show.MetadataURI,
		Status:      storage.StatusFromCode(show.Status),
		Organizer:   organizer,
	}

	fields := []struct {
		name string
		src  *big.Int
		dst  *u256.Uint256
	}{
		{"startTime", show.StartTime, &state.StartTime},
		{"endTime", show.EndTime, &state.EndTime},
		{"totalTickets", show.TotalTickets, &state.TotalTickets},
		{"ticketPrice", show.TicketPrice, &state.TicketPrice},
		{"ticketsSold", show.TicketsSold, &state.TicketsSold},
	}
	for _, f := range fields {
		if f.src == nil {
			return storage.ShowState{}, fmt.Errorf("%w: %s missing", ErrDecode, f.name)
		}
		v, err := u256.FromBig(f.src)
		if err != nil {
			return storage.ShowState{}, fmt.Errorf("%w: %s: %w", ErrDecode, f.name, err)
		}
		*f.dst = v
	}
	return state, nil
}
