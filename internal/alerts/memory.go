package alerts

import (
	"context"
	"sync"
)

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 32

// MemoryBus is an in-process Bus. Slow subscribers miss alerts rather than
// blocking publishers.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[chan Alert]struct{}
	closed bool
}

// NewMemoryBus creates an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[chan Alert]struct{})}
}

// Publish delivers a to every current subscriber.
func (b *MemoryBus) Publish(ctx context.Context, a Alert) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	for ch := range b.subs {
		select {
		case ch <- a:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done.
func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan Alert, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	ch := make(chan Alert, subscriberBuffer)
	b.subs[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}()

	return ch, nil
}

// Close closes every subscriber channel.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	return nil
}
