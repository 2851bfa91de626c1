package eventbus

import (
	"context"
	"errors"
	"time"

	"github.com/0xmhha/show-indexer/internal/constants"
	"go.uber.org/zap"
)

// Multi publishes every event to all of its sinks. A failing sink does not
// stop delivery to the others.
type Multi struct {
	sinks   []Publisher
	timeout time.Duration
	logger  *zap.Logger
}

var _ Publisher = (*Multi)(nil)

// NewMulti combines sinks; nil sinks are skipped
func NewMulti(logger *zap.Logger, sinks ...Publisher) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Multi{timeout: constants.DefaultPublishTimeout, logger: logger.Named("eventbus")}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Publish delivers to each sink with a per-sink timeout and joins the failures
func (m *Multi) Publish(ctx context.Context, event ShowUpserted) error {
	var errs []error
	for _, sink := range m.sinks {
		pctx, cancel := context.WithTimeout(ctx, m.timeout)
		err := sink.Publish(pctx, event)
		cancel()
		if err != nil {
			m.logger.Warn("publish failed",
				zap.String("sink", string(sink.Type())),
				zap.String("show_id", event.ShowID.String()),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of sinks
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Type returns BusTypeMulti
func (m *Multi) Type() BusType {
	return BusTypeMulti
}

// Close closes every sink
func (m *Multi) Close() error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
