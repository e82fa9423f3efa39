package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/sabzgam/internal/events"
)

// ErrUnknownTopic is returned for topics sabzgam does not publish to.
var ErrUnknownTopic = errors.New("unknown topic")

// KafkaProducer publishes outbox records through one shared writer. The topic
// is set per record; records are keyed by tenant and user, so the hash
// balancer keeps each user's wallet and walk events on one partition.
type KafkaProducer struct {
	writer *kafka.Writer
	topics map[string]bool
}

// NewKafkaProducer creates a producer for the service topics on brokers.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	topics := make(map[string]bool)
	for _, t := range events.Topics() {
		topics[t] = true
	}
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			BatchTimeout: 50 * time.Millisecond,
		},
		topics: topics,
	}
}

// WriteMessages publishes msgs on topic and blocks until they are acknowledged.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	if !p.topics[topic] {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	for i := range msgs {
		msgs[i].Topic = topic
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close flushes pending writes and releases the writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
