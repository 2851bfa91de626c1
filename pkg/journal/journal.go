// Package journal records ingestion events that were dropped because the
// on-chain state read failed. Entries are kept for operator inspection only;
// nothing replays them.
package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xmhha/show-indexer/internal/constants"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// ErrClosed is returned when the journal has been closed
var ErrClosed = errors.New("journal closed")

var dropPrefix = []byte("/drop/")

// Entry is one dropped event
type Entry struct {
	Seq         uint64       `json:"seq"`
	ShowID      u256.Uint256 `json:"show_id"`
	TxHash      string       `json:"tx_hash"`
	BlockNumber uint64       `json:"block_number"`
	LogIndex    uint         `json:"log_index"`
	Reason      string       `json:"reason"`
	DroppedAt   time.Time    `json:"dropped_at"`
}

// Journal is a pebble-backed append-only list of dropped events
type Journal struct {
	db     *pebble.DB
	seq    atomic.Uint64
	mu     sync.RWMutex
	closed atomic.Bool
	logger *zap.Logger
}

// Open opens or creates the journal at path
func Open(path string, logger *zap.Logger) (*Journal, error) {
	if path == "" {
		path = constants.DefaultJournalPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	j := &Journal{db: db, logger: logger.Named("journal")}
	last, err := j.lastSeq()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read journal position: %w", err)
	}
	j.seq.Store(last)
	return j, nil
}

func entryKey(seq uint64) []byte {
	key := make([]byte, len(dropPrefix)+8)
	copy(key, dropPrefix)
	binary.BigEndian.PutUint64(key[len(dropPrefix):], seq)
	return key
}

// prefixUpperBound returns the smallest key greater than every key with prefix
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

func (j *Journal) newIter() (*pebble.Iterator, error) {
	return j.db.NewIter(&pebble.IterOptions{
		LowerBound: dropPrefix,
		UpperBound: prefixUpperBound(dropPrefix),
	})
}

func (j *Journal) lastSeq() (uint64, error) {
	iter, err := j.newIter()
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return binary.BigEndian.Uint64(iter.Key()[len(dropPrefix):]), nil
}

// Record appends an entry. Seq and a zero DroppedAt are filled in.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed.Load() {
		return ErrClosed
	}

	e.Seq = j.seq.Load() + 1
	if e.DroppedAt.IsZero() {
		e.DroppedAt = time.Now().UTC()
	}
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}
	if err := j.db.Set(entryKey(e.Seq), value, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	j.seq.Store(e.Seq)

	j.logger.Debug("dropped event recorded",
		zap.Uint64("seq", e.Seq),
		zap.String("show_id", e.ShowID.String()),
		zap.String("tx_hash", e.TxHash))
	return nil
}

// List returns up to limit entries, newest first
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed.Load() {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = constants.DefaultJournalListLimit
	}

	iter, err := j.newIter()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	entries := make([]Entry, 0, limit)
	for valid := iter.Last(); valid && len(entries) < limit; valid = iter.Prev() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("failed to decode journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, iter.Error()
}

// Len returns the number of recorded entries
func (j *Journal) Len() uint64 {
	return j.seq.Load()
}

// Close closes the journal. It waits for a Record or List in progress.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed.Swap(true) {
		return nil
	}
	return j.db.Close()
}
