package events

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/goodpass/backoffice/internal/config"
	"github.com/goodpass/backoffice/internal/domain"
)

// ActivityPublisher emits activity events to Kafka so downstream consumers
// (fraud analytics, notification fan-out) can react to moderator actions.
type ActivityPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewActivityPublisher creates a Kafka producer for activity events
func NewActivityPublisher(cfg config.KafkaConfig) (*ActivityPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3

	if cfg.EnableIdempotent {
		saramaConfig.Producer.Idempotent = true
		saramaConfig.Net.MaxOpenRequests = 1
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &ActivityPublisher{
		producer: producer,
		topic:    cfg.ActivityTopic,
	}, nil
}

// Publish sends a single activity event, keyed by actor so a consumer sees
// one moderator's actions in order.
func (p *ActivityPublisher) Publish(event *domain.ActivityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal activity event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.ActorID.String()),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to publish activity event: %w", err)
	}
	return nil
}

func (p *ActivityPublisher) Close() error {
	return p.producer.Close()
}
