package testutil

import (
	"math/big"
	"testing"

	"github.com/0xmhha/show-indexer/pkg/showmanager"
	"github.com/ethereum/go-ethereum/common"
)

func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger(t)
	if logger == nil {
		t.Fatal("NewTestLogger returned nil")
	}
	logger.Warn("test warning")
}

func TestNewShowCreatedLog(t *testing.T) {
	log := NewShowCreatedLog(t, big.NewInt(9), AtBlock(100, 2))

	if log.Address != ShowManagerAddress {
		t.Errorf("address = %s, want %s", log.Address.Hex(), ShowManagerAddress.Hex())
	}
	if log.BlockNumber != 100 || log.Index != 2 {
		t.Errorf("block/index = %d/%d, want 100/2", log.BlockNumber, log.Index)
	}
	if log.TxHash == (common.Hash{}) {
		t.Error("tx hash should be set")
	}

	ev, err := showmanager.ParseShowCreated(&log)
	if err != nil {
		t.Fatalf("ParseShowCreated() error = %v", err)
	}
	if ev.ShowID.Int64() != 9 {
		t.Errorf("show id = %s, want 9", ev.ShowID)
	}
}

func TestNewRawLog(t *testing.T) {
	hash := common.HexToHash("0x01")
	log := NewRawLog(UnknownAddress, "Transfer(address,address,uint256)", WithTxHash(hash), FromAddress(ShowManagerAddress))

	if log.Address != ShowManagerAddress {
		t.Errorf("address = %s, want %s", log.Address.Hex(), ShowManagerAddress.Hex())
	}
	if log.TxHash != hash {
		t.Errorf("tx hash = %s, want %s", log.TxHash.Hex(), hash.Hex())
	}
	if showmanager.IsShowCreated(&log) {
		t.Error("raw log should not be recognized as ShowCreated")
	}
}
