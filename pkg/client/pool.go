package client

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	Endpoint string
	Timeout  time.Duration
	Logger   *zap.Logger
	// Signers is shared with the pool; a new empty registry is used when nil
	Signers *SignerRegistry
}

// Pool owns the two long-lived read connections and the signer registry.
// The listener connection carries only the log subscription so that
// subscription backpressure never delays state reads on the reader connection.
type Pool struct {
	listener *Client
	reader   *Client
	signers  *SignerRegistry
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewPool dials the listener and reader connections
func NewPool(ctx context.Context, cfg *PoolConfig) (*Pool, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("pool")

	signers := cfg.Signers
	if signers == nil {
		signers = NewSignerRegistry(logger)
	}

	clientCfg := &Config{Endpoint: cfg.Endpoint, Timeout: cfg.Timeout, Logger: logger}

	listener, err := NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to dial listener connection: %w", err)
	}
	reader, err := NewClient(ctx, clientCfg)
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to dial reader connection: %w", err)
	}

	logger.Info("connection pool ready", zap.String("endpoint", cfg.Endpoint))

	return &Pool{
		listener: listener,
		reader:   reader,
		signers:  signers,
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		logger:   logger,
	}, nil
}

// Listener returns the connection reserved for the live log subscription
func (p *Pool) Listener() *Client {
	return p.listener
}

// Reader returns the connection used for ad hoc state reads
func (p *Pool) Reader() *Client {
	return p.reader
}

// Signers returns the pool's signer registry
func (p *Pool) Signers() *SignerRegistry {
	return p.signers
}

// ConnectionFor dials a new signing-capable connection bound to the named key.
// The connection is not cached; the caller must Close it.
func (p *Pool) ConnectionFor(ctx context.Context, name string) (*SignerClient, error) {
	key, ok := p.signers.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSignerNotFound, name)
	}

	c, err := NewClient(ctx, &Config{Endpoint: p.endpoint, Timeout: p.timeout, Logger: p.logger})
	if err != nil {
		return nil, err
	}
	chainID, err := c.ChainID(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	return &SignerClient{
		Client:  c,
		name:    name,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

// Close closes both read connections
func (p *Pool) Close() {
	p.listener.Close()
	p.reader.Close()
}

// SignerClient is a connection that signs and sends transactions with one key
type SignerClient struct {
	*Client
	name    string
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

// From returns the signing address
func (s *SignerClient) From() common.Address {
	return s.from
}

// Name returns the registry name of the signing key
func (s *SignerClient) Name() string {
	return s.name
}

// Transact signs a legacy transaction calling `to` with data and submits it
func (s *SignerClient) Transact(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	nonce, err := s.PendingNonceAt(ctx, s.from)
	if err != nil {
		return common.Hash{}, err
	}
	gasPrice, err := s.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	gas, err := s.EstimateGas(ctx, ethereum.CallMsg{From: s.from, To: &to, Data: data})
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    new(big.Int),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := s.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}

	s.logger.Info("transaction submitted",
		zap.String("signer", s.name),
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce))

	return signed.Hash(), nil
}
