package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// OutboxTopicPublisher публикует события сущностей из outbox в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicEntityEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

// Publish отправляет событие с ключом по идентификатору сущности,
// чтобы события одной сущности попадали в одну партицию.
func (p *OutboxTopicPublisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("%w: kafka publisher is not initialized", domain.ErrOutboxPublish)
	}

	key := event.ID
	if event.AggregateID != "" {
		key = event.AggregateType + ":" + event.AggregateID
	}

	envelope := Envelope{
		ID:          event.ID,
		EntityType:  event.AggregateType,
		EntityID:    event.AggregateID,
		EventType:   event.EventType,
		Payload:     json.RawMessage(event.Payload),
		PublishedAt: time.Now().UTC(),
	}

	return p.producer.PublishEvent(ctx, p.topic, key, envelope, map[string]string{
		HeaderEventID:    event.ID,
		HeaderEventType:  event.EventType,
		HeaderEntityType: event.AggregateType,
	})
}

// Topic возвращает topic публикации.
func (p *OutboxTopicPublisher) Topic() string {
	return p.topic
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
