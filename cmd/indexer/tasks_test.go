package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0xmhha/show-indexer/pkg/events"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type failingSubscription struct {
	errCh chan error
}

func (s *failingSubscription) Unsubscribe()      {}
func (s *failingSubscription) Err() <-chan error { return s.errCh }

// failingSubscriber opens a subscription that fails straight away
type failingSubscriber struct{}

func (failingSubscriber) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, _ chan<- types.Log) (ethereum.Subscription, error) {
	errCh := make(chan error, 1)
	errCh <- errors.New("websocket: close 1006 (abnormal closure)")
	return &failingSubscription{errCh: errCh}, nil
}

func newFailingListener() *events.Listener {
	router := events.NewRouter(events.RouterConfig{}, events.NewDecoder(nil), nil)
	return events.NewListener(failingSubscriber{}, router, nil, nil)
}

// blockingRunner stands in for a listener with an event in flight at shutdown
type blockingRunner struct {
	release chan struct{}
	exited  atomic.Bool
}

func (b *blockingRunner) Run(ctx context.Context) error {
	<-ctx.Done()
	<-b.release
	b.exited.Store(true)
	return nil
}

func superviseAsync(t *testing.T, ctx context.Context, done <-chan error, stop context.CancelFunc, apiErr <-chan error) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- supervise(ctx, zaptest.NewLogger(t), done, stop, apiErr)
	}()
	return result
}

func TestSupervise_ListenerFailureKeepsAPIServing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done, stop := startListener(ctx, newFailingListener())
	result := superviseAsync(t, ctx, done, stop, make(chan error))

	select {
	case err := <-result:
		t.Fatalf("supervise returned while the API server was running: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("supervise did not return after shutdown")
	}
}

func TestSupervise_ListenerFailureWithoutAPI(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done, stop := startListener(ctx, newFailingListener())
	err := supervise(ctx, zaptest.NewLogger(t), done, stop, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listener")
	assert.Contains(t, err.Error(), "abnormal closure")
}

func TestSupervise_WaitsForListenerOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &blockingRunner{release: make(chan struct{})}

	done, stop := startListener(ctx, runner)
	result := superviseAsync(t, ctx, done, stop, make(chan error))

	cancel()
	select {
	case <-result:
		t.Fatal("supervise returned before the listener exited")
	case <-time.After(100 * time.Millisecond):
	}

	close(runner.release)
	select {
	case err := <-result:
		assert.NoError(t, err)
		assert.True(t, runner.exited.Load())
	case <-time.After(time.Second):
		t.Fatal("supervise did not return after the listener exited")
	}
}

func TestSupervise_APIFailureStopsListener(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	close(runner.release)

	done, stop := startListener(context.Background(), runner)
	apiErr := make(chan error, 1)
	apiErr <- errors.New("listen tcp :8080: bind: address already in use")

	err := supervise(context.Background(), zaptest.NewLogger(t), done, stop, apiErr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api server")
	assert.True(t, runner.exited.Load())
}
