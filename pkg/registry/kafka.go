package registry

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaBus is the Kafka backend: one topic, the group key as the message
// key. Each process consumes with a unique consumer group so every gateway
// sees every event and fans out to its own local members.
type KafkaBus struct {
	writer *kafka.Writer
	reader *kafka.Reader

	mu      sync.RWMutex
	handler func(key string, data []byte)
}

func NewKafkaBus(brokers []string, topic string) *KafkaBus {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     "gateway-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
		MinBytes:    10e3,
		MaxBytes:    10e6,
	})

	return &KafkaBus{writer: writer, reader: reader}
}

func (b *KafkaBus) Subscribe(handler func(key string, data []byte)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

func (b *KafkaBus) Publish(ctx context.Context, key string, data []byte) error {
	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
}

func (b *KafkaBus) Start(ctx context.Context) error {
	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()

	for {
		m, err := b.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if handler != nil {
			handler(string(m.Key), m.Value)
		}
	}
}

func (b *KafkaBus) Close() error {
	werr := b.writer.Close()
	rerr := b.reader.Close()
	return errors.Join(werr, rerr)
}
