package lifecycle

import (
	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// SequenceFactory возвращает генератор increment id для кода типа сущности.
type SequenceFactory func(entityCode string) domain.SequenceGenerator

// Registry хранит Persister для каждого типа сущности.
type Registry struct {
	persisters map[string]*Persister
}

// NewRegistry создаёт Persister для каждого из types с общим хранилищем.
func NewRegistry(storage domain.StorageAdapter, sequences SequenceFactory, types []domain.EntityType, options ...Option) *Registry {
	r := &Registry{persisters: make(map[string]*Persister, len(types))}
	for _, t := range types {
		var generator domain.SequenceGenerator
		if t.Incremental {
			generator = sequences(t.Code)
		}
		r.persisters[t.Code] = NewPersister(t, storage, generator, options...)
	}
	return r
}

// Get возвращает Persister по коду типа.
func (r *Registry) Get(code string) (*Persister, error) {
	p, ok := r.persisters[code]
	if !ok {
		return nil, domain.ErrUnknownEntityType
	}
	return p, nil
}

// Codes возвращает коды зарегистрированных типов.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.persisters))
	for code := range r.persisters {
		codes = append(codes, code)
	}
	return codes
}
