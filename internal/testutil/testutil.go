// Package testutil provides loggers and chain log fixtures shared by package tests.
package testutil

import (
	"math/big"
	"testing"

	"github.com/0xmhha/show-indexer/pkg/showmanager"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Addresses used across tests
var (
	ShowManagerAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	OrganizerAddress   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	UnknownAddress     = common.HexToAddress("0x000000000000000000000000000000000000dEaD")
)

// NewTestLogger creates a logger that writes through t.Log
func NewTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
}

// LogOption customizes a fixture log
type LogOption func(*types.Log)

// AtBlock sets the block number and log index
func AtBlock(block uint64, index uint) LogOption {
	return func(l *types.Log) {
		l.BlockNumber = block
		l.Index = index
	}
}

// WithTxHash sets the transaction hash
func WithTxHash(hash common.Hash) LogOption {
	return func(l *types.Log) {
		l.TxHash = hash
	}
}

// FromAddress sets the emitting address
func FromAddress(addr common.Address) LogOption {
	return func(l *types.Log) {
		l.Address = addr
	}
}

// NewShowCreatedLog builds a ShowCreated log emitted by ShowManagerAddress
func NewShowCreatedLog(t *testing.T, showID *big.Int, opts ...LogOption) types.Log {
	t.Helper()
	log, err := showmanager.NewShowCreatedLog(ShowManagerAddress, showmanager.ShowCreated{
		ShowID:    showID,
		Organizer: OrganizerAddress,
		Name:      "Demo Show",
		StartTime: big.NewInt(1735689600),
		EndTime:   big.NewInt(1735696800),
		Venue:     "City Hall",
	})
	if err != nil {
		t.Fatalf("failed to build ShowCreated log: %v", err)
	}
	log.TxHash = crypto.Keccak256Hash(showID.Bytes())
	for _, opt := range opts {
		opt(&log)
	}
	return log
}

// NewRawLog builds a log with an arbitrary event signature and no data
func NewRawLog(addr common.Address, signature string, opts ...LogOption) types.Log {
	log := types.Log{
		Address: addr,
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte(signature))},
	}
	for _, opt := range opts {
		opt(&log)
	}
	return log
}
