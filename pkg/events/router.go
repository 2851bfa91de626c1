package events

import (
	"context"
	"errors"
	"time"

	"github.com/0xmhha/show-indexer/pkg/eventbus"
	"github.com/0xmhha/show-indexer/pkg/journal"
	"github.com/0xmhha/show-indexer/pkg/showmanager"
	"github.com/0xmhha/show-indexer/pkg/storage"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Outcome is the terminal result of routing one log
type Outcome int

const (
	// OutcomePersisted means the show records were committed
	OutcomePersisted Outcome = iota
	// OutcomeSkipped means the log was not for a handled event
	OutcomeSkipped
	// OutcomeDropped means the on-chain read failed and nothing was written
	OutcomeDropped
	// OutcomeFailed means the write failed and was rolled back
	OutcomeFailed
)

// String returns the outcome label
func (o Outcome) String() string {
	switch o {
	case OutcomePersisted:
		return "persisted"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDropped:
		return "dropped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ingestPreserve keeps the first-seen created_at when an event is replayed
var ingestPreserve = storage.UpsertOptions{Preserve: []string{"created_at"}}

// SnapshotCache holds read-through copies of show snapshots. The router only
// invalidates: the committed row may keep preserved columns that differ from
// the records it wrote, so the next read refills from the store.
type SnapshotCache interface {
	Delete(ctx context.Context, id u256.Uint256) error
}

// DropRecorder records events dropped on a failed state read
type DropRecorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// RouterConfig holds routing configuration
type RouterConfig struct {
	Contract         common.Address
	PrintRawLogs     bool
	PrintUnknownLogs bool
}

// Router dispatches logs to their handler. A failure is contained to its log.
type Router struct {
	cfg     RouterConfig
	decoder *Decoder
	store   storage.ShowWriter

	cache     SnapshotCache
	publisher eventbus.Publisher
	journal   DropRecorder
	metrics   *Metrics
	logger    *zap.Logger
}

// RouterOption configures optional post-commit sinks
type RouterOption func(*Router)

// WithCache invalidates the cached snapshot after each commit
func WithCache(c SnapshotCache) RouterOption {
	return func(r *Router) { r.cache = c }
}

// WithPublisher publishes a ShowUpserted event after each commit
func WithPublisher(p eventbus.Publisher) RouterOption {
	return func(r *Router) { r.publisher = p }
}

// WithJournal records dropped events
func WithJournal(j DropRecorder) RouterOption {
	return func(r *Router) { r.journal = j }
}

// WithMetrics records ingestion metrics
func WithMetrics(m *Metrics) RouterOption {
	return func(r *Router) { r.metrics = m }
}

// WithLogger sets the router logger
func WithLogger(l *zap.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// NewRouter creates a router for the configured contract
func NewRouter(cfg RouterConfig, decoder *Decoder, store storage.ShowWriter, opts ...RouterOption) *Router {
	r := &Router{cfg: cfg, decoder: decoder, store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("router")
	return r
}

// Route processes one log to a terminal outcome
func (r *Router) Route(ctx context.Context, log types.Log) Outcome {
	o := r.route(ctx, &log)
	r.metrics.outcome(o)
	return o
}

func (r *Router) route(ctx context.Context, log *types.Log) Outcome {
	if r.cfg.PrintRawLogs {
		r.logger.Info("log received", logFields(log)...)
	}

	if log.Address != r.cfg.Contract {
		if r.cfg.PrintUnknownLogs {
			r.logger.Info("log from unknown address", logFields(log)...)
		}
		return OutcomeSkipped
	}

	kind := Classify(log)
	r.metrics.kind(kind)

	switch kind {
	case KindShowCreated:
		return r.handleShowCreated(ctx, log)
	default:
		if r.cfg.PrintRawLogs {
			r.logger.Info("unrecognized event from known contract", logFields(log)...)
		}
		return OutcomeSkipped
	}
}

func (r *Router) handleShowCreated(ctx context.Context, log *types.Log) Outcome {
	ev, err := r.decoder.Decode(log)
	if err != nil {
		r.logger.Warn("failed to decode ShowCreated, skipped", append(logFields(log), zap.Error(err))...)
		return OutcomeSkipped
	}

	start := time.Now()
	recs, err := r.decoder.Resolve(ctx, ev)
	r.metrics.observeStateRead(start)
	switch {
	case errors.Is(err, ErrStateRead):
		r.logger.Error("show state read failed, event dropped",
			append(logFields(log), zap.String("show_id", ev.ShowID.String()), zap.Error(err))...)
		r.recordDrop(ctx, ev, err)
		return OutcomeDropped
	case err != nil:
		r.logger.Warn("failed to map show state, skipped",
			append(logFields(log), zap.String("show_id", ev.ShowID.String()), zap.Error(err))...)
		return OutcomeSkipped
	}

	start = time.Now()
	err = r.store.UpsertShowAll(ctx, recs, ingestPreserve)
	r.metrics.observeUpsert(start)
	if err != nil {
		r.logger.Error("failed to persist show",
			append(logFields(log), zap.String("show_id", recs.Basic.ShowID.String()), zap.Error(err))...)
		return OutcomeFailed
	}

	r.logger.Info("show persisted",
		zap.String("show_id", recs.Basic.ShowID.String()),
		zap.String("status", string(recs.Detail.Status)),
		zap.Uint64("block", log.BlockNumber))
	r.afterCommit(ctx, recs)
	return OutcomePersisted
}

func (r *Router) recordDrop(ctx context.Context, ev *showmanager.ShowCreated, cause error) {
	if r.journal == nil {
		return
	}
	showID, _ := u256.FromBig(ev.ShowID)
	entry := journal.Entry{
		ShowID:      showID,
		TxHash:      ev.Raw.TxHash.Hex(),
		BlockNumber: ev.Raw.BlockNumber,
		LogIndex:    ev.Raw.Index,
		Reason:      cause.Error(),
	}
	if err := r.journal.Record(ctx, entry); err != nil {
		r.metrics.sinkError("journal")
		r.logger.Warn("failed to journal dropped event", zap.Error(err))
	}
}

// afterCommit feeds the committed state to the optional sinks. Sink failures
// are logged only.
func (r *Router) afterCommit(ctx context.Context, recs storage.ShowRecords) {
	if r.cache != nil {
		if err := r.cache.Delete(ctx, recs.Snapshot.ID); err != nil {
			r.metrics.sinkError("cache")
			r.logger.Warn("failed to invalidate show cache", zap.String("show_id", recs.Basic.ShowID.String()), zap.Error(err))
		}
	}

	if r.publisher != nil {
		event := eventbus.ShowUpserted{
			ShowID:      recs.Basic.ShowID,
			TxHash:      recs.Basic.TxHash,
			BlockNumber: recs.Basic.BlockNumber,
			Status:      string(recs.Detail.Status),
			IsActive:    recs.Snapshot.IsActive,
			At:          time.Now().UTC(),
		}
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.metrics.sinkError(string(r.publisher.Type()))
			r.logger.Warn("failed to publish show event", zap.String("show_id", recs.Basic.ShowID.String()), zap.Error(err))
		}
	}
}

func logFields(log *types.Log) []zap.Field {
	fields := []zap.Field{
		zap.String("address", log.Address.Hex()),
		zap.Uint64("block", log.BlockNumber),
		zap.String("tx_hash", log.TxHash.Hex()),
		zap.Uint("log_index", log.Index),
	}
	if len(log.Topics) > 0 {
		fields = append(fields, zap.String("topic0", log.Topics[0].Hex()))
	}
	return fields
}
