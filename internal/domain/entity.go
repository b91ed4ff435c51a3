package domain

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// Служебные колонки, общие для всех sales-таблиц.
const (
	ColumnEntityID    = "entity_id"
	ColumnIncrementID = "increment_id"
	ColumnStoreID     = "store_id"
	ColumnCreatedAt   = "created_at"
	ColumnUpdatedAt   = "updated_at"
)

// Entity — сохраняемая запись продаж (заказ, инвойс, возврат, отгрузка, транзакция).
//
// Состояния: New (ID == 0) и Persisted (ID != 0). Переход New -> Persisted
// происходит один раз, при первой успешной вставке, и необратим.
type Entity struct {
	// ID назначается хранилищем при первой вставке.
	ID int64
	// IncrementID — человекочитаемый номер (номер заказа/инвойса), назначается один раз.
	IncrementID string
	// StoreID определяет пространство имён последовательности.
	StoreID int64
	// CreatedAt и UpdatedAt принадлежат часам хранилища и никогда не отправляются в запись.
	CreatedAt time.Time
	UpdatedAt time.Time
	// ForceObjectSave — транзиентный флаг: true превращает Save в no-op.
	ForceObjectSave bool

	data  map[string]any
	dirty map[string]struct{}
}

// NewEntity создаёт новую (ещё не сохранённую) сущность для магазина.
func NewEntity(storeID int64) *Entity {
	return &Entity{
		StoreID: storeID,
		data:    make(map[string]any),
		dirty:   make(map[string]struct{}),
	}
}

// IsNew сообщает, что сущность ещё ни разу не записывалась.
func (e *Entity) IsNew() bool {
	return e.ID == 0
}

// PartitionKey возвращает ключ последовательности increment id.
func (e *Entity) PartitionKey() string {
	return PartitionKey(e.StoreID)
}

// Set записывает атрибут и помечает его изменённым.
func (e *Entity) Set(key string, value any) *Entity {
	e.ensure()
	e.data[key] = value
	e.dirty[key] = struct{}{}
	return e
}

// Get возвращает значение атрибута.
func (e *Entity) Get(key string) (any, bool) {
	if e.data == nil {
		return nil, false
	}
	v, ok := e.data[key]
	return v, ok
}

// String возвращает строковый атрибут или пустую строку.
func (e *Entity) String(key string) string {
	v, _ := e.Get(key)
	s, _ := AsString(v)
	return s
}

// Data возвращает копию всех атрибутов.
func (e *Entity) Data() map[string]any {
	if e.data == nil {
		return map[string]any{}
	}
	return maps.Clone(e.data)
}

// DirtyFields возвращает отсортированный список изменённых атрибутов.
func (e *Entity) DirtyFields() []string {
	return slices.Sorted(maps.Keys(e.dirty))
}

// IsDirty сообщает, есть ли несохранённые изменения.
func (e *Entity) IsDirty() bool {
	return len(e.dirty) > 0
}

// Changes возвращает изменённые атрибуты со значениями.
func (e *Entity) Changes() map[string]any {
	changes := make(map[string]any, len(e.dirty))
	for key := range e.dirty {
		changes[key] = e.data[key]
	}
	return changes
}

// MarkClean сбрасывает набор изменённых атрибутов после успешной записи.
func (e *Entity) MarkClean() {
	e.dirty = make(map[string]struct{})
}

// Hydrate заполняет сущность строкой из хранилища. Результат считается чистым.
func (e *Entity) Hydrate(idField string, row map[string]any) {
	e.ensure()
	for key, value := range row {
		switch key {
		case idField:
			if id, ok := AsInt64(value); ok {
				e.ID = id
			}
		case ColumnIncrementID:
			if s, ok := AsString(value); ok {
				e.IncrementID = s
			}
		case ColumnStoreID:
			if id, ok := AsInt64(value); ok {
				e.StoreID = id
			}
		case ColumnCreatedAt:
			if ts, ok := AsTime(value); ok {
				e.CreatedAt = ts
			}
		case ColumnUpdatedAt:
			if ts, ok := AsTime(value); ok {
				e.UpdatedAt = ts
			}
		default:
			e.data[key] = value
		}
	}
	e.MarkClean()
}

// Snapshot фиксирует поля, которые Save обязан восстановить при неудачной записи.
type Snapshot struct {
	id          int64
	incrementID string
}

// Snapshot возвращает снимок идентификаторов сущности.
func (e *Entity) Snapshot() Snapshot {
	return Snapshot{id: e.ID, incrementID: e.IncrementID}
}

// Restore возвращает идентификаторы к состоянию снимка.
func (e *Entity) Restore(s Snapshot) {
	e.ID = s.id
	e.IncrementID = s.incrementID
}

func (e *Entity) ensure() {
	if e.data == nil {
		e.data = make(map[string]any)
	}
	if e.dirty == nil {
		e.dirty = make(map[string]struct{})
	}
}

// PartitionKey строит ключ последовательности для магазина: store_<id>.
func PartitionKey(storeID int64) string {
	return fmt.Sprintf("store_%d", storeID)
}
