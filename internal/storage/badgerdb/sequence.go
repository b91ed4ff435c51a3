package badgerdb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// Sequence выдаёт increment id; счётчик партиции хранится под inc/<type>/<partition>.
// Вызовы для одного счётчика сериализуются блокировкой Store.
type Sequence struct {
	store      *Store
	entityCode string
}

// NewSequence создаёт генератор для типа сущности.
func NewSequence(store *Store, entityCode string) *Sequence {
	return &Sequence{store: store, entityCode: entityCode}
}

// SequenceFactory возвращает фабрику генераторов поверх одной базы.
func SequenceFactory(store *Store) func(entityCode string) domain.SequenceGenerator {
	return func(entityCode string) domain.SequenceGenerator {
		return NewSequence(store, entityCode)
	}
}

// Next атомарно увеличивает счётчик партиции.
func (s *Sequence) Next(ctx context.Context, partitionKey string) (string, error) {
	storeID, err := domain.ParsePartitionKey(partitionKey)
	if err != nil {
		return "", domain.NewAllocationError(partitionKey, err)
	}

	key := fmt.Sprintf("inc/%s/%s", s.entityCode, partitionKey)
	unlock := s.store.lockCounter(key)
	defer unlock()

	// Под блокировкой конфликт возможен только с чужим писателем того же ключа.
	for {
		if err := ctx.Err(); err != nil {
			return "", domain.NewAllocationError(partitionKey, err)
		}

		var value uint64
		err := s.store.db.Update(func(txn *badger.Txn) error {
			current, err := readCounter(txn, []byte(key))
			if err != nil {
				return err
			}
			value = current + 1
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, value)
			return txn.Set([]byte(key), buf)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return "", domain.NewAllocationError(partitionKey, err)
		}
		return domain.FormatIncrementID(storeID, int64(value)), nil
	}
}

func readCounter(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var value uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt counter %q", key)
		}
		value = binary.BigEndian.Uint64(val)
		return nil
	})
	return value, err
}

var _ domain.SequenceGenerator = (*Sequence)(nil)
