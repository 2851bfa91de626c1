package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ErrSubscriptionClosed is returned when the log subscription ends without an error
var ErrSubscriptionClosed = errors.New("log subscription closed")

// logBufferSize bounds logs received but not yet routed
const logBufferSize = 128

// LogSubscriber opens a live log subscription
type LogSubscriber interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Listener feeds every log of a live subscription to the router, one at a time
type Listener struct {
	subscriber LogSubscriber
	router     *Router
	metrics    *Metrics
	logger     *zap.Logger
}

// NewListener creates a listener. The subscription is unfiltered so that the
// router sees logs from unknown addresses too.
func NewListener(subscriber LogSubscriber, router *Router, metrics *Metrics, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		subscriber: subscriber,
		router:     router,
		metrics:    metrics,
		logger:     logger.Named("listener"),
	}
}

// Run subscribes and routes logs until ctx is cancelled (returns nil) or the
// subscription fails (returns the error). A log being routed when ctx is
// cancelled is finished first.
func (l *Listener) Run(ctx context.Context) error {
	logs := make(chan types.Log, logBufferSize)
	sub, err := l.subscriber.SubscribeFilterLogs(ctx, ethereum.FilterQuery{}, logs)
	if err != nil {
		return fmt.Errorf("failed to start log subscription: %w", err)
	}
	defer sub.Unsubscribe()

	l.logger.Info("listening for logs")
	processCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("listener stopped")
			return nil
		case err, ok := <-sub.Err():
			if !ok || err == nil {
				return ErrSubscriptionClosed
			}
			l.logger.Error("log subscription failed", zap.Error(err))
			return fmt.Errorf("log subscription failed: %w", err)
		case log := <-logs:
			l.metrics.logReceived()
			l.router.Route(processCtx, log)
		}
	}
}
