// Package lifecycle реализует жизненный цикл сохранения sales-сущностей:
// назначение increment id до первой записи, запись без клиентских
// временных меток и перечитывание created_at/updated_at после записи.
package lifecycle

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// Колонки, которые никогда не попадают в payload записи.
var storeOwnedColumns = []string{
	domain.ColumnCreatedAt,
	domain.ColumnUpdatedAt,
	domain.ColumnIncrementID,
	domain.ColumnStoreID,
}

// Option настраивает Persister.
type Option func(*Persister)

// WithObserver регистрирует наблюдателя успешных сохранений.
func WithObserver(observer domain.SaveObserver) Option {
	return func(p *Persister) {
		if observer != nil {
			p.observers = append(p.observers, observer)
		}
	}
}

// WithAttributeSaver заменяет стандартный AttributeWriter.
func WithAttributeSaver(saver domain.AttributeSaver) Option {
	return func(p *Persister) {
		p.attributes = saver
	}
}

// Persister сохраняет сущности одного типа.
// Не логирует и не повторяет операции: ошибки уходят вызывающему как есть.
type Persister struct {
	entityType domain.EntityType
	storage    domain.StorageAdapter
	sequences  domain.SequenceGenerator
	attributes domain.AttributeSaver
	observers  []domain.SaveObserver
}

// NewPersister создаёт Persister для типа сущности.
func NewPersister(entityType domain.EntityType, storage domain.StorageAdapter, sequences domain.SequenceGenerator, options ...Option) *Persister {
	p := &Persister{
		entityType: entityType,
		storage:    storage,
		sequences:  sequences,
	}
	for _, option := range options {
		option(p)
	}
	if p.attributes == nil {
		p.attributes = NewAttributeWriter(storage)
	}
	return p
}

// EntityType возвращает тип, который обслуживает Persister.
func (p *Persister) EntityType() domain.EntityType {
	return p.entityType
}

// Save записывает сущность и возвращает тот же указатель.
//
// ForceObjectSave и сохранённая сущность без изменений — no-op.
// Ошибка генератора — *domain.AllocationError, запись не выполняется.
// Ошибка записи — *domain.StorageError, ID и IncrementID возвращаются к
// состоянию до вызова. Ошибки перечитывания временных меток игнорируются.
func (p *Persister) Save(ctx context.Context, entity *domain.Entity) (*domain.Entity, error) {
	if entity.ForceObjectSave {
		return entity, nil
	}
	if !entity.IsNew() && !entity.IsDirty() && !p.needsIncrementID(entity) {
		return entity, nil
	}

	snapshot := entity.Snapshot()
	assigned, err := p.assignIncrementID(ctx, entity)
	if err != nil {
		return entity, err
	}

	created := entity.IsNew()
	payload := p.buildPayload(entity, created, assigned)
	if err := p.write(ctx, entity, created, payload); err != nil {
		entity.Restore(snapshot)
		return entity, err
	}

	p.refreshTimestamps(ctx, entity)
	entity.MarkClean()
	p.notify(ctx, entity, created, payload)

	return entity, nil
}

// Load читает сущность по идентификатору.
func (p *Persister) Load(ctx context.Context, id int64) (*domain.Entity, error) {
	row, found, err := p.storage.FetchRow(ctx, p.entityType.Table, p.entityType.Columns, id)
	if err != nil {
		return nil, domain.NewStorageError("fetch", p.entityType.Table.Name, err)
	}
	if !found {
		return nil, fmt.Errorf("%s %d: %w", p.entityType.Code, id, domain.ErrEntityNotFound)
	}

	entity := &domain.Entity{}
	entity.Hydrate(p.entityType.Table.IDField, row)
	return entity, nil
}

// SaveAttribute делегирует сохранение отдельных атрибутов AttributeSaver.
func (p *Persister) SaveAttribute(ctx context.Context, entity *domain.Entity, attributes ...string) error {
	return p.attributes.SaveAttribute(ctx, p.entityType, entity, attributes)
}

func (p *Persister) needsIncrementID(entity *domain.Entity) bool {
	return p.entityType.Incremental && entity.IncrementID == ""
}

func (p *Persister) assignIncrementID(ctx context.Context, entity *domain.Entity) (bool, error) {
	if !p.needsIncrementID(entity) {
		return false, nil
	}

	partitionKey := entity.PartitionKey()
	incrementID, err := p.sequences.Next(ctx, partitionKey)
	if err != nil {
		return false, domain.NewAllocationError(partitionKey, err)
	}
	entity.IncrementID = incrementID
	return true, nil
}

func (p *Persister) buildPayload(entity *domain.Entity, created, assigned bool) map[string]any {
	omit := append(slices.Clone(storeOwnedColumns), p.entityType.Table.IDField)
	payload := lo.OmitByKeys(entity.Changes(), omit)

	if created && p.entityType.HasColumn(domain.ColumnStoreID) {
		payload[domain.ColumnStoreID] = entity.StoreID
	}
	if p.entityType.Incremental && (created || assigned) {
		payload[domain.ColumnIncrementID] = entity.IncrementID
	}
	return payload
}

func (p *Persister) write(ctx context.Context, entity *domain.Entity, created bool, payload map[string]any) error {
	table := p.entityType.Table
	if !created {
		if err := p.storage.Update(ctx, table, entity.ID, payload); err != nil {
			return domain.NewStorageError("update", table.Name, err)
		}
		return nil
	}

	id, err := p.storage.Insert(ctx, table, payload)
	if err != nil {
		return domain.NewStorageError("insert", table.Name, err)
	}
	if id <= 0 {
		return domain.NewStorageError("insert", table.Name, fmt.Errorf("storage returned invalid id %d", id))
	}
	entity.ID = id
	return nil
}

// refreshTimestamps перечитывает created_at/updated_at, если таблица их содержит.
// Любой сбой оставляет временные метки сущности без изменений.
func (p *Persister) refreshTimestamps(ctx context.Context, entity *domain.Entity) {
	table := p.entityType.Table

	columns, err := p.storage.DescribeColumns(ctx, table)
	if err != nil {
		return
	}
	_, hasCreated := columns[domain.ColumnCreatedAt]
	_, hasUpdated := columns[domain.ColumnUpdatedAt]
	if !hasCreated || !hasUpdated {
		return
	}

	row, found, err := p.storage.FetchRow(ctx, table, []string{domain.ColumnCreatedAt, domain.ColumnUpdatedAt}, entity.ID)
	if err != nil || !found {
		return
	}

	createdAt, okCreated := domain.AsTime(row[domain.ColumnCreatedAt])
	updatedAt, okUpdated := domain.AsTime(row[domain.ColumnUpdatedAt])
	if !okCreated || !okUpdated {
		return
	}
	entity.CreatedAt = createdAt
	entity.UpdatedAt = updatedAt
}

func (p *Persister) notify(ctx context.Context, entity *domain.Entity, created bool, payload map[string]any) {
	if len(p.observers) == 0 {
		return
	}

	fields := lo.Keys(payload)
	slices.Sort(fields)
	event := domain.SaveEvent{
		EntityType:  p.entityType.Code,
		EntityID:    entity.ID,
		IncrementID: entity.IncrementID,
		StoreID:     entity.StoreID,
		Created:     created,
		Fields:      fields,
		CreatedAt:   entity.CreatedAt,
		UpdatedAt:   entity.UpdatedAt,
	}
	for _, observer := range p.observers {
		observer.EntitySaved(ctx, event)
	}
}
