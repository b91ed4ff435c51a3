package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

const nextSequenceSQL = `
	INSERT INTO sales_sequence (entity_type, partition_key, last_value)
	VALUES ($1, $2, 1)
	ON CONFLICT (entity_type, partition_key)
	DO UPDATE SET last_value = sales_sequence.last_value + 1, updated_at = NOW()
	RETURNING last_value
`

// Sequence выдаёт increment id из таблицы sales_sequence.
// Атомарность обеспечивает upsert одной строкой на (тип, партиция).
type Sequence struct {
	db         *sql.DB
	entityCode string
}

// NewSequence создаёт генератор для типа сущности.
func NewSequence(store *Store, entityCode string) *Sequence {
	return &Sequence{db: store.DB(), entityCode: entityCode}
}

// SequenceFactory возвращает фабрику генераторов для всех типов сущностей.
func SequenceFactory(store *Store) func(entityCode string) domain.SequenceGenerator {
	return func(entityCode string) domain.SequenceGenerator {
		return NewSequence(store, entityCode)
	}
}

// Next резервирует следующее значение партиции.
func (s *Sequence) Next(ctx context.Context, partitionKey string) (string, error) {
	storeID, err := domain.ParsePartitionKey(partitionKey)
	if err != nil {
		return "", domain.NewAllocationError(partitionKey, err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var value int64
	if err := s.db.QueryRowContext(ctx, nextSequenceSQL, s.entityCode, partitionKey).Scan(&value); err != nil {
		return "", domain.NewAllocationError(partitionKey, fmt.Errorf("reserve %s sequence value: %w", s.entityCode, err))
	}
	return domain.FormatIncrementID(storeID, value), nil
}

var _ domain.SequenceGenerator = (*Sequence)(nil)
