package showmanager

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// On-chain status codes
const (
	StatusUpcoming  uint8 = 0
	StatusActive    uint8 = 1
	StatusEnded     uint8 = 2
	StatusCancelled uint8 = 3
)

// Show mirrors the ShowManager.Show struct returned by getShow
type Show struct {
	ID           *big.Int `abi:"id"`
	Name         string   `abi:"name"`
	Description  string   `abi:"description"`
	Location     string   `abi:"location"`
	StartTime    *big.Int `abi:"startTime"`
	EndTime      *big.Int `abi:"endTime"`
	TotalTickets *big.Int `abi:"totalTickets"`
	TicketPrice  *big.Int `abi:"ticketPrice"`
	TicketsSold  *big.Int `abi:"ticketsSold"`
	MetadataURI  string   `abi:"metadataURI"`
	Status       uint8    `abi:"status"`
}

// ShowCreated is a decoded ShowCreated log
type ShowCreated struct {
	ShowID    *big.Int
	Organizer common.Address
	Name      string
	StartTime *big.Int
	EndTime   *big.Int
	Venue     string
	Raw       types.Log
}

// IsShowCreated reports whether the log carries the ShowCreated signature
func IsShowCreated(log *types.Log) bool {
	return len(log.Topics) > 0 && log.Topics[0] == ShowCreatedTopic()
}

// ParseShowCreated decodes a ShowCreated log. The show id and organizer are
// indexed and come from the topics; the rest is ABI-encoded in the data.
func ParseShowCreated(log *types.Log) (*ShowCreated, error) {
	if !IsShowCreated(log) {
		return nil, ErrNotShowCreated
	}
	if len(log.Topics) != 3 {
		return nil, fmt.Errorf("%w: expected 3 topics, got %d", ErrMalformedLog, len(log.Topics))
	}

	values, err := contractABI.Unpack(EventShowCreated, log.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("%w: expected 4 data fields, got %d", ErrMalformedLog, len(values))
	}

	name, ok1 := values[0].(string)
	start, ok2 := values[1].(*big.Int)
	end, ok3 := values[2].(*big.Int)
	venue, ok4 := values[3].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("%w: unexpected field types", ErrMalformedLog)
	}

	return &ShowCreated{
		ShowID:    new(big.Int).SetBytes(log.Topics[1].Bytes()),
		Organizer: common.BytesToAddress(log.Topics[2].Bytes()),
		Name:      name,
		StartTime: start,
		EndTime:   end,
		Venue:     venue,
		Raw:       *log,
	}, nil
}

// NewShowCreatedLog encodes a ShowCreated log emitted by contract.
// Used by tests and local tooling.
func NewShowCreatedLog(contract common.Address, ev ShowCreated) (types.Log, error) {
	data, err := contractABI.Events[EventShowCreated].Inputs.NonIndexed().Pack(ev.Name, ev.StartTime, ev.EndTime, ev.Venue)
	if err != nil {
		return types.Log{}, fmt.Errorf("failed to pack ShowCreated data: %w", err)
	}
	return types.Log{
		Address: contract,
		Topics: []common.Hash{
			ShowCreatedTopic(),
			common.BigToHash(ev.ShowID),
			common.BytesToHash(ev.Organizer.Bytes()),
		},
		Data: data,
	}, nil
}
