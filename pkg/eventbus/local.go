package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/0xmhha/show-indexer/internal/constants"
	"github.com/google/uuid"
)

// Subscription receives events from a LocalBus until unsubscribed
type Subscription struct {
	ID string
	C  <-chan ShowUpserted
	ch chan ShowUpserted
}

// LocalBus delivers events to in-process subscribers. A subscriber whose
// buffer is full misses the event instead of blocking the publisher.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

var _ Publisher = (*LocalBus)(nil)

// NewLocalBus creates an empty local bus
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]*Subscription)}
}

// Subscribe registers a subscriber with the given buffer size
func (b *LocalBus) Subscribe(bufferSize int) *Subscription {
	if bufferSize <= 0 {
		bufferSize = constants.DefaultClientSendBuffer
	}
	ch := make(chan ShowUpserted, bufferSize)
	sub := &Subscription{ID: uuid.NewString(), C: ch, ch: ch}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	b.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes its channel
func (b *LocalBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish delivers the event to every subscriber with buffer space
func (b *LocalBus) Publish(_ context.Context, event ShowUpserted) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	b.published.Add(1)
	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
			b.delivered.Add(1)
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// SubscriberCount returns the number of active subscribers
func (b *LocalBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Stats returns (published, delivered, dropped)
func (b *LocalBus) Stats() (uint64, uint64, uint64) {
	return b.published.Load(), b.delivered.Load(), b.dropped.Load()
}

// Type returns BusTypeLocal
func (b *LocalBus) Type() BusType {
	return BusTypeLocal
}

// Close closes every subscriber channel
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
	return nil
}
