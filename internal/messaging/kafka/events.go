package kafka

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
)

// Topics для Kafka
const (
	TopicEntityEvents    = "sales.entity.events"
	TopicDeadLetterQueue = "sales.dlq" // Dead Letter Queue для событий, не опубликованных после retry
)

// Kafka headers
const (
	HeaderEventType  = "x-event-type"
	HeaderEntityType = "x-entity-type"
	HeaderEventID    = "x-event-id"
)

// Envelope — формат сообщения в topic событий сущностей.
type Envelope struct {
	ID          string          `json:"id"`
	EntityType  string          `json:"entity_type"`
	EntityID    string          `json:"entity_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"published_at"`
}

// headerCarrier адаптирует заголовки сообщения к propagation.TextMapCarrier.
type headerCarrier struct {
	headers *[]sarama.RecordHeader
}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if string(h.Key) == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, string(h.Key))
	}
	return keys
}
