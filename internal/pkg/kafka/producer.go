package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/prime-labs/express-bot/config"
	"github.com/prime-labs/express-bot/internal/models"
)

// Producer publishes ticket lifecycle events to a Kafka topic.
type Producer struct {
	producer sarama.SyncProducer
	config   *config.KafkaConfig
}

// NewProducer creates a new Kafka producer instance.
// It establishes a connection to the Kafka brokers specified in the configuration.
//
// Parameters:
//   - cfg: Kafka configuration containing broker addresses, topic and retry settings
//
// Returns:
//   - *Producer: The created producer instance
//   - error: Any error encountered during initialization
func NewProducer(cfg *config.KafkaConfig) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = "express-bot"
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = cfg.MaxRetries
	saramaConfig.Producer.Retry.Backoff = time.Duration(cfg.RetryBackoffMs) * time.Millisecond
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	// Set connection timeouts to prevent hanging
	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond
	saramaConfig.Metadata.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewProducerFromSync(producer, cfg), nil
}

// NewProducerFromSync wraps an existing sync producer.
func NewProducerFromSync(producer sarama.SyncProducer, cfg *config.KafkaConfig) *Producer {
	return &Producer{producer: producer, config: cfg}
}

// Publish sends event to the configured topic, keyed by Discord user id so
// that events of one ticket stay ordered within a partition.
//
// Parameters:
//   - ctx: Context checked before sending
//   - event: The lifecycle event to publish
//
// Returns:
//   - error: Any error encountered during encoding or sending
func (p *Producer) Publish(ctx context.Context, event models.TicketEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.config.Topic,
		Key:   sarama.StringEncoder(event.DiscordUserID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
		Timestamp: event.OccurredAt,
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send %s event to topic %s: %w", event.Type, p.config.Topic, err)
	}
	return nil
}

// Close closes the Kafka producer and releases all resources.
func (p *Producer) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close kafka producer: %w", err)
		}
	}
	return nil
}

// NopPublisher drops every event. It is used when Kafka is not configured or
// unreachable at startup.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.TicketEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
