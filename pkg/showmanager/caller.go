package showmanager

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Caller reads ShowManager state through a read-only connection
type Caller struct {
	backend ethereum.ContractCaller
	address common.Address
}

// NewCaller binds a caller to the contract at address
func NewCaller(backend ethereum.ContractCaller, address common.Address) *Caller {
	return &Caller{backend: backend, address: address}
}

// Address returns the bound contract address
func (c *Caller) Address() common.Address {
	return c.address
}

// GetShow fetches the current on-chain state of a show at the latest block
func (c *Caller) GetShow(ctx context.Context, showID *big.Int) (*Show, error) {
	input, err := contractABI.Pack(MethodGetShow, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getShow: %w", err)
	}

	output, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call getShow(%s): %w", showID, err)
	}

	values, err := contractABI.Unpack(MethodGetShow, output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack getShow(%s): %w", showID, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("failed to unpack getShow(%s): expected 1 value, got %d", showID, len(values))
	}

	show := abi.ConvertType(values[0], new(Show)).(*Show)
	return show, nil
}

// PackGetShowResult ABI-encodes a getShow return value
func PackGetShowResult(show Show) ([]byte, error) {
	return contractABI.Methods[MethodGetShow].Outputs.Pack(show)
}

// PackUpdateShow builds calldata for updateShow(showId, name, metadataURI)
func PackUpdateShow(showID *big.Int, name, metadataURI string) ([]byte, error) {
	data, err := contractABI.Pack(MethodUpdateShow, showID, name, metadataURI)
	if err != nil {
		return nil, fmt.Errorf("failed to pack updateShow: %w", err)
	}
	return data, nil
}
