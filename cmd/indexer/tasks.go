package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// logRunner is the listening task
type logRunner interface {
	Run(ctx context.Context) error
}

// startListener runs l on its own goroutine. done receives the result of Run
// exactly once; stop cancels the listener without touching ctx.
func startListener(ctx context.Context, l logRunner) (done <-chan error, stop context.CancelFunc) {
	listenCtx, cancel := context.WithCancel(ctx)
	ch := make(chan error, 1)
	go func() {
		ch <- l.Run(listenCtx)
	}()
	return ch, cancel
}

// supervise blocks until shutdown and returns only after the listener has
// exited, so the resources it routes through stay open until then.
//
// A listener failure ends the process only when nothing else is hosted
// (apiErr is nil). With the API server running it is logged and the server
// keeps serving until ctx is cancelled. An API server failure stops both.
func supervise(ctx context.Context, log *zap.Logger, listenerDone <-chan error, stopListener context.CancelFunc, apiErr <-chan error) error {
	var runErr error

loop:
	for {
		select {
		case <-ctx.Done():
			log.Info("Received shutdown signal")
			break loop

		case err := <-listenerDone:
			listenerDone = nil
			if err == nil {
				break loop
			}
			if apiErr == nil {
				runErr = fmt.Errorf("listener: %w", err)
				break loop
			}
			log.Error("Listener stopped, API server keeps serving", zap.Error(err))

		case err := <-apiErr:
			runErr = fmt.Errorf("api server: %w", err)
			break loop
		}
	}

	stopListener()
	if listenerDone != nil {
		<-listenerDone
	}
	return runErr
}
