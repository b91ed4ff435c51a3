package lifecycle

import (
	"context"

	"github.com/samber/lo"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// AttributeWriter обновляет только перечисленные атрибуты сохранённой сущности.
type AttributeWriter struct {
	storage domain.StorageAdapter
}

// NewAttributeWriter создаёт AttributeWriter поверх адаптера хранилища.
func NewAttributeWriter(storage domain.StorageAdapter) *AttributeWriter {
	return &AttributeWriter{storage: storage}
}

// SaveAttribute записывает значения attributes одной операцией Update.
func (w *AttributeWriter) SaveAttribute(ctx context.Context, entityType domain.EntityType, entity *domain.Entity, attributes []string) error {
	if entity.IsNew() {
		return domain.ErrEntityNotPersisted
	}

	fields := lo.OmitByKeys(lo.PickByKeys(entity.Data(), attributes), storeOwnedColumns)
	if len(fields) == 0 {
		return nil
	}

	if err := w.storage.Update(ctx, entityType.Table, entity.ID, fields); err != nil {
		return domain.NewStorageError("update", entityType.Table.Name, err)
	}
	return nil
}

var _ domain.AttributeSaver = (*AttributeWriter)(nil)
