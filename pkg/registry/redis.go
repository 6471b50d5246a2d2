package registry

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// channelPrefix namespaces the bus inside a shared Redis. The group key
// becomes the pub/sub channel name under this prefix.
const channelPrefix = "baithak.bus."

// RedisBus is the Redis pub/sub backend. Every gateway PSubscribes to the
// whole prefix and routes locally by group key, so a message published on
// any process reaches the members on all of them.
type RedisBus struct {
	rdb *redis.Client

	mu      sync.RWMutex
	handler func(key string, data []byte)
	pubsub  *redis.PubSub
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

func (b *RedisBus) Subscribe(handler func(key string, data []byte)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

func (b *RedisBus) Publish(ctx context.Context, key string, data []byte) error {
	return b.rdb.Publish(ctx, channelPrefix+key, data).Err()
}

func (b *RedisBus) Start(ctx context.Context) error {
	pubsub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	b.mu.Lock()
	b.pubsub = pubsub
	handler := b.handler
	b.mu.Unlock()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if handler != nil {
				key := strings.TrimPrefix(msg.Channel, channelPrefix)
				handler(key, []byte(msg.Payload))
			}
		}
	}
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	pubsub := b.pubsub
	b.pubsub = nil
	b.mu.Unlock()

	if pubsub != nil {
		return pubsub.Close()
	}
	return nil
}
