package client

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/0xmhha/show-indexer/internal/config"
	"github.com/0xmhha/show-indexer/internal/constants"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

var (
	// ErrEmptySignerName is returned when registering a signer without a name
	ErrEmptySignerName = errors.New("signer name cannot be empty")

	// ErrInvalidKey is returned when a private key is not a valid secp256k1 scalar
	ErrInvalidKey = errors.New("invalid private key")

	// ErrSignerNotFound is returned when no signer is registered under a name
	ErrSignerNotFound = errors.New("signer not found")
)

// SignerInfo describes a registered signer without exposing its key
type SignerInfo struct {
	Name    string         `json:"name"`
	Address common.Address `json:"address"`
}

// SignerRegistry holds named private keys in memory.
// When a persistence path is set, every mutation is written through to it;
// a mutation whose write fails is undone in memory too.
type SignerRegistry struct {
	mu          sync.RWMutex
	keys        map[string]*ecdsa.PrivateKey
	persistPath string
	logger      *zap.Logger
}

// NewSignerRegistry creates an empty registry
func NewSignerRegistry(logger *zap.Logger) *SignerRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignerRegistry{
		keys:   make(map[string]*ecdsa.PrivateKey),
		logger: logger.Named("signers"),
	}
}

// ParsePrivateKey validates a hex private key, with or without 0x prefix
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	trimmed := strings.TrimSpace(hexKey)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// Register validates and stores a key under name, replacing any previous key
func (r *SignerRegistry) Register(name, hexKey string) (SignerInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SignerInfo{}, ErrEmptySignerName
	}
	key, err := ParsePrivateKey(hexKey)
	if err != nil {
		return SignerInfo{}, fmt.Errorf("failed to register signer %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	prev, existed := r.keys[name]
	r.keys[name] = key
	if err := r.writeThroughLocked(); err != nil {
		if existed {
			r.keys[name] = prev
		} else {
			delete(r.keys, name)
		}
		return SignerInfo{}, err
	}
	info := SignerInfo{Name: name, Address: crypto.PubkeyToAddress(key.PublicKey)}
	r.logger.Debug("signer registered", zap.String("name", name), zap.String("address", info.Address.Hex()))
	return info, nil
}

// Unregister removes the named signer and reports whether it existed
func (r *SignerRegistry) Unregister(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[name]
	if !ok {
		return false, nil
	}
	delete(r.keys, name)
	if err := r.writeThroughLocked(); err != nil {
		r.keys[name] = key
		return false, err
	}
	return true, nil
}

// Clear removes every signer
func (r *SignerRegistry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.keys
	r.keys = make(map[string]*ecdsa.PrivateKey)
	if err := r.writeThroughLocked(); err != nil {
		r.keys = prev
		return err
	}
	return nil
}

// List returns the registered signers sorted by name
func (r *SignerRegistry) List() []SignerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]SignerInfo, 0, len(r.keys))
	for name, key := range r.keys {
		infos = append(infos, SignerInfo{Name: name, Address: crypto.PubkeyToAddress(key.PublicKey)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Get returns the key registered under name
func (r *SignerRegistry) Get(name string) (*ecdsa.PrivateKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[name]
	return key, ok
}

// Len returns the number of registered signers
func (r *SignerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// EnablePersistence turns on write-through to path. It does not load the file.
func (r *SignerRegistry) EnablePersistence(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistPath = path
}

// LoadFile merges signers from a JSON {name: hexKey} file. A missing file is not an error.
func (r *SignerRegistry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read signers file: %w", err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse signers file: %w", err)
	}

	parsed := make(map[string]*ecdsa.PrivateKey, len(entries))
	for name, hexKey := range entries {
		key, err := ParsePrivateKey(hexKey)
		if err != nil {
			return fmt.Errorf("failed to load signer %q: %w", name, err)
		}
		parsed[name] = key
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, key := range parsed {
		r.keys[name] = key
	}
	r.logger.Info("signers loaded", zap.String("path", path), zap.Int("count", len(parsed)))
	return nil
}

// SaveFile writes all signers to path as JSON with owner-only permissions
func (r *SignerRegistry) SaveFile(path string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saveLocked(path)
}

func (r *SignerRegistry) writeThroughLocked() error {
	if r.persistPath == "" {
		return nil
	}
	return r.saveLocked(r.persistPath)
}

func (r *SignerRegistry) saveLocked(path string) error {
	entries := make(map[string]string, len(r.keys))
	for name, key := range r.keys {
		entries[name] = hexutil.Encode(crypto.FromECDSA(key))
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode signers: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create signers directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, constants.SignersFileMode); err != nil {
		return fmt.Errorf("failed to write signers file: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(path, constants.SignersFileMode); err != nil {
		return fmt.Errorf("failed to restrict signers file: %w", err)
	}
	return nil
}

// LoadSigners builds a registry from the signers file and the PRIVATE_KEY
// override, registered as constants.DefaultSignerName. Write-through is
// enabled last when cfg.Persist is set.
func LoadSigners(cfg config.SignersConfig, logger *zap.Logger) (*SignerRegistry, error) {
	r := NewSignerRegistry(logger)
	if cfg.File != "" {
		if err := r.LoadFile(cfg.File); err != nil {
			return nil, err
		}
	}
	if cfg.PrivateKey != "" {
		if _, err := r.Register(constants.DefaultSignerName, cfg.PrivateKey); err != nil {
			return nil, fmt.Errorf("invalid PRIVATE_KEY: %w", err)
		}
	}
	if cfg.Persist && cfg.File != "" {
		r.EnablePersistence(cfg.File)
	}
	return r, nil
}
