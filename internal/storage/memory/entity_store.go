package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

type tableData struct {
	idField string
	columns map[string]struct{}
	lastID  int64
	rows    map[int64]map[string]any
}

// EntityStore — in-memory реализация StorageAdapter.
// Ведёт себя как таблица с DEFAULT now() для created_at и триггером для updated_at.
type EntityStore struct {
	mu     sync.RWMutex
	tables map[string]*tableData
	now    func() time.Time
}

// EntityStoreOption настраивает EntityStore.
type EntityStoreOption func(*EntityStore)

// WithClock подменяет часы хранилища.
func WithClock(now func() time.Time) EntityStoreOption {
	return func(s *EntityStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewEntityStore создаёт хранилище с таблицами для перечисленных типов.
func NewEntityStore(types []domain.EntityType, options ...EntityStoreOption) *EntityStore {
	s := &EntityStore{
		tables: make(map[string]*tableData, len(types)),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(s)
	}
	for _, t := range types {
		columns := make(map[string]struct{}, len(t.Columns))
		for _, c := range t.Columns {
			columns[c] = struct{}{}
		}
		s.tables[t.Table.Name] = &tableData{
			idField: t.Table.IDField,
			columns: columns,
			rows:    make(map[int64]map[string]any),
		}
	}
	return s
}

// Insert добавляет строку. Колонка, которой нет в таблице, даёт StorageError.
func (s *EntityStore) Insert(ctx context.Context, table domain.Table, fields map[string]any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.NewStorageError("insert", table.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(table)
	if err != nil {
		return 0, domain.NewStorageError("insert", table.Name, err)
	}

	row, err := t.filter(fields)
	if err != nil {
		return 0, domain.NewStorageError("insert", table.Name, err)
	}
	now := s.now()
	if t.has(domain.ColumnCreatedAt) {
		row[domain.ColumnCreatedAt] = now
	}
	if t.has(domain.ColumnUpdatedAt) {
		row[domain.ColumnUpdatedAt] = now
	}

	t.lastID++
	row[t.idField] = t.lastID
	t.rows[t.lastID] = row
	return t.lastID, nil
}

// Update обновляет строку по идентификатору. Пустой набор полей ничего не меняет.
func (s *EntityStore) Update(ctx context.Context, table domain.Table, id int64, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("update", table.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(table)
	if err != nil {
		return domain.NewStorageError("update", table.Name, err)
	}
	row, ok := t.rows[id]
	if !ok {
		return domain.NewStorageError("update", table.Name, fmt.Errorf("id %d: %w", id, domain.ErrEntityNotFound))
	}

	changes, err := t.filter(fields)
	if err != nil {
		return domain.NewStorageError("update", table.Name, err)
	}
	if len(changes) == 0 {
		return nil
	}
	maps.Copy(row, changes)
	if t.has(domain.ColumnUpdatedAt) {
		row[domain.ColumnUpdatedAt] = s.now()
	}
	return nil
}

// DescribeColumns возвращает колонки таблицы.
func (s *EntityStore) DescribeColumns(_ context.Context, table domain.Table) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.table(table)
	if err != nil {
		return nil, domain.NewStorageError("describe", table.Name, err)
	}
	return maps.Clone(t.columns), nil
}

// FetchRow читает колонки строки.
func (s *EntityStore) FetchRow(ctx context.Context, table domain.Table, columns []string, id int64) (map[string]any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, domain.NewStorageError("fetch", table.Name, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.table(table)
	if err != nil {
		return nil, false, domain.NewStorageError("fetch", table.Name, err)
	}
	row, ok := t.rows[id]
	if !ok {
		return nil, false, nil
	}

	result := make(map[string]any, len(columns))
	for _, c := range columns {
		if !t.has(c) {
			return nil, false, domain.NewStorageError("fetch", table.Name, fmt.Errorf("unknown column %q", c))
		}
		if v, ok := row[c]; ok {
			result[c] = v
		}
	}
	return result, true, nil
}

// Count возвращает число строк в таблице.
func (s *EntityStore) Count(table domain.Table) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table.Name]
	if !ok {
		return 0
	}
	return len(t.rows)
}

func (s *EntityStore) table(table domain.Table) (*tableData, error) {
	t, ok := s.tables[table.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTable, table.Name)
	}
	return t, nil
}

func (t *tableData) has(column string) bool {
	_, ok := t.columns[column]
	return ok
}

// filter отбрасывает первичный ключ и отклоняет колонки, которых нет в таблице.
func (t *tableData) filter(fields map[string]any) (map[string]any, error) {
	row := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == t.idField {
			continue
		}
		if !t.has(k) {
			return nil, fmt.Errorf("unknown column %q", k)
		}
		row[k] = v
	}
	return row, nil
}

var _ domain.StorageAdapter = (*EntityStore)(nil)
