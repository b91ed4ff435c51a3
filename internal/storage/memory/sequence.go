package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// Sequence — in-memory генератор increment id одного типа сущности.
type Sequence struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewSequence создаёт пустую последовательность.
func NewSequence() *Sequence {
	return &Sequence{values: make(map[string]int64)}
}

// Next увеличивает счётчик партиции и форматирует increment id.
func (s *Sequence) Next(ctx context.Context, partitionKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.NewAllocationError(partitionKey, err)
	}
	storeID, err := domain.ParsePartitionKey(partitionKey)
	if err != nil {
		return "", domain.NewAllocationError(partitionKey, err)
	}

	s.mu.Lock()
	s.values[partitionKey]++
	value := s.values[partitionKey]
	s.mu.Unlock()

	return domain.FormatIncrementID(storeID, value), nil
}

// Sequences раздаёт по одной последовательности на код типа сущности.
type Sequences struct {
	mu        sync.Mutex
	sequences map[string]*Sequence
}

// NewSequences создаёт пустой набор последовательностей.
func NewSequences() *Sequences {
	return &Sequences{sequences: make(map[string]*Sequence)}
}

// For возвращает последовательность для типа сущности, создавая её при необходимости.
func (s *Sequences) For(entityCode string) domain.SequenceGenerator {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.sequences[entityCode]
	if !ok {
		seq = NewSequence()
		s.sequences[entityCode] = seq
	}
	return seq
}

var _ domain.SequenceGenerator = (*Sequence)(nil)
