package registry

import (
	"context"
	"sync"
)

// Bus is the backend that mediates every publish. Subscribe wires the
// single consumer and must be called before Start; Start blocks until ctx
// is cancelled or the backend fails.
type Bus interface {
	Publish(ctx context.Context, key string, data []byte) error
	Subscribe(handler func(key string, data []byte))
	Start(ctx context.Context) error
	Close() error
}

// MemoryBus is the single-process backend: publish hands the event
// straight to the subscriber. Suitable for one-node deployments and tests;
// horizontal scaling needs the Redis or Kafka bus.
type MemoryBus struct {
	mu      sync.RWMutex
	handler func(key string, data []byte)
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Subscribe(handler func(key string, data []byte)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

func (b *MemoryBus) Publish(_ context.Context, key string, data []byte) error {
	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()
	if handler != nil {
		handler(key, data)
	}
	return nil
}

func (b *MemoryBus) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *MemoryBus) Close() error { return nil }
