package lifecycle

import (
	"context"
	"maps"
	"time"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

type writeCall struct {
	table  domain.Table
	id     int64
	fields map[string]any
}

type fetchCall struct {
	columns []string
	id      int64
}

// stubStorage записывает все вызовы адаптера.
type stubStorage struct {
	columns     map[string]struct{}
	describeErr error

	row      map[string]any
	rowFound bool
	fetchErr error

	nextID    int64
	insertErr error
	updateErr error

	inserts  []writeCall
	updates  []writeCall
	fetches  []fetchCall
	describe int
}

func newStubStorage(columns ...string) *stubStorage {
	set := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return &stubStorage{columns: set, nextID: 100}
}

func (s *stubStorage) Insert(_ context.Context, table domain.Table, fields map[string]any) (int64, error) {
	s.inserts = append(s.inserts, writeCall{table: table, fields: maps.Clone(fields)})
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	return s.nextID, nil
}

func (s *stubStorage) Update(_ context.Context, table domain.Table, id int64, fields map[string]any) error {
	s.updates = append(s.updates, writeCall{table: table, id: id, fields: maps.Clone(fields)})
	return s.updateErr
}

func (s *stubStorage) DescribeColumns(_ context.Context, _ domain.Table) (map[string]struct{}, error) {
	s.describe++
	if s.describeErr != nil {
		return nil, s.describeErr
	}
	return s.columns, nil
}

func (s *stubStorage) FetchRow(_ context.Context, _ domain.Table, columns []string, id int64) (map[string]any, bool, error) {
	s.fetches = append(s.fetches, fetchCall{columns: columns, id: id})
	if s.fetchErr != nil {
		return nil, false, s.fetchErr
	}
	if !s.rowFound {
		return nil, false, nil
	}
	return maps.Clone(s.row), true, nil
}

func (s *stubStorage) writes() int {
	return len(s.inserts) + len(s.updates)
}

// stubSequence возвращает заранее заданное значение и считает вызовы.
type stubSequence struct {
	value string
	err   error
	keys  []string
}

func (s *stubSequence) Next(_ context.Context, partitionKey string) (string, error) {
	s.keys = append(s.keys, partitionKey)
	if s.err != nil {
		return "", s.err
	}
	return s.value, nil
}

func (s *stubSequence) calls() int {
	return len(s.keys)
}

var (
	_ domain.StorageAdapter    = (*stubStorage)(nil)
	_ domain.SequenceGenerator = (*stubSequence)(nil)
)

var (
	serverCreatedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	serverUpdatedAt = time.Date(2024, 5, 1, 10, 0, 5, 0, time.UTC)
)

func timestampRow() map[string]any {
	return map[string]any{
		domain.ColumnCreatedAt: serverCreatedAt,
		domain.ColumnUpdatedAt: serverUpdatedAt,
	}
}
