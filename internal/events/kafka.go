package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Topic carrying wallet transaction events.
const Topic = "wallet.transactions"

// KafkaPublisher writes transaction events to Kafka, keyed by account id so
// all events of one account land on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaPublisher builds a publisher for the wallet transactions topic.
func NewKafkaPublisher(brokers []string, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e TransactionEvent) error {
	e = stamp(e)
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(e.AccountID),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("publish transaction event", slog.String("kind", e.Kind), slog.Any("error", err))
		return err
	}
	return nil
}

// Close flushes and releases the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
