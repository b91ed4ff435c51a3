package outbox

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// EventTypeEntitySaved — тип события о сохранённой сущности.
const EventTypeEntitySaved = "sales.entity.saved"

// EntitySavedPayload — тело события sales.entity.saved.
type EntitySavedPayload struct {
	EntityType  string    `json:"entity_type"`
	EntityID    int64     `json:"entity_id"`
	IncrementID string    `json:"increment_id,omitempty"`
	StoreID     int64     `json:"store_id"`
	Created     bool      `json:"created"`
	Fields      []string  `json:"fields"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// EntityObserver складывает события сохранения сущностей в outbox.
// Ошибки записи только логируются: сущность к этому моменту уже сохранена.
type EntityObserver struct {
	repo   domain.OutboxRepository
	logger *log.Entry
}

// NewEntityObserver создаёт наблюдатель поверх repo.
func NewEntityObserver(repo domain.OutboxRepository, logger *log.Entry) *EntityObserver {
	if logger == nil {
		logger = log.WithField("component", "outbox-observer")
	}
	return &EntityObserver{repo: repo, logger: logger}
}

// EntitySaved реализует domain.SaveObserver.
func (o *EntityObserver) EntitySaved(ctx context.Context, event domain.SaveEvent) {
	payload, err := json.Marshal(EntitySavedPayload{
		EntityType:  event.EntityType,
		EntityID:    event.EntityID,
		IncrementID: event.IncrementID,
		StoreID:     event.StoreID,
		Created:     event.Created,
		Fields:      event.Fields,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	})
	if err != nil {
		o.logger.WithError(err).Warn("failed to encode entity saved event")
		return
	}

	msg, err := o.repo.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: event.EntityType,
		AggregateID:   strconv.FormatInt(event.EntityID, 10),
		EventType:     EventTypeEntitySaved,
		Payload:       payload,
	})
	if err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"entity_type": event.EntityType,
			"entity_id":   event.EntityID,
		}).Warn("failed to enqueue entity saved event")
		return
	}

	o.logger.WithFields(log.Fields{
		"event_id":    msg.ID,
		"entity_type": event.EntityType,
		"entity_id":   event.EntityID,
	}).Debug("entity saved event enqueued")
}

var _ domain.SaveObserver = (*EntityObserver)(nil)
