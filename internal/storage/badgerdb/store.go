// Package badgerdb хранит sales-сущности во встраиваемом BadgerDB.
// Строка таблицы — JSON-документ под ключом row/<table>/<id>.
package badgerdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

const idLeaseBandwidth = 100

// Options настраивает BadgerDB.
type Options struct {
	// Path — каталог базы. Пустой путь включает in-memory режим.
	Path string
	// InMemory включает in-memory режим даже при заданном Path.
	InMemory bool
	// Logger для badger; nil отключает журнал badger.
	Logger *log.Entry
	// Now подменяет часы хранилища.
	Now func() time.Time
}

type tableSchema struct {
	idField string
	columns map[string]struct{}
}

// Store — BadgerDB-реализация StorageAdapter.
type Store struct {
	db     *badger.DB
	tables map[string]tableSchema
	now    func() time.Time

	mu  sync.Mutex
	ids map[string]*badger.Sequence

	countersMu sync.Mutex
	counters   map[string]*sync.Mutex
}

// Open открывает базу и регистрирует таблицы перечисленных типов.
func Open(opts Options, types []domain.EntityType) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	tables := make(map[string]tableSchema, len(types))
	for _, t := range types {
		columns := make(map[string]struct{}, len(t.Columns))
		for _, c := range t.Columns {
			columns[c] = struct{}{}
		}
		tables[t.Table.Name] = tableSchema{idField: t.Table.IDField, columns: columns}
	}

	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Store{
		db:       db,
		tables:   tables,
		now:      now,
		ids:      make(map[string]*badger.Sequence),
		counters: make(map[string]*sync.Mutex),
	}, nil
}

// DB возвращает raw badger.DB.
func (s *Store) DB() *badger.DB {
	return s.db
}

// Close освобождает выданные диапазоны идентификаторов и закрывает базу.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	s.mu.Lock()
	var errs []error
	for _, seq := range s.ids {
		if err := seq.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	clear(s.ids)
	s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Insert записывает новую строку с идентификатором из badger.Sequence таблицы.
func (s *Store) Insert(ctx context.Context, table domain.Table, fields map[string]any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.NewStorageError("insert", table.Name, err)
	}
	schema, err := s.schema(table)
	if err != nil {
		return 0, domain.NewStorageError("insert", table.Name, err)
	}

	row, err := schema.filter(fields)
	if err != nil {
		return 0, domain.NewStorageError("insert", table.Name, err)
	}
	id, err := s.nextID(table.Name)
	if err != nil {
		return 0, domain.NewStorageError("insert", table.Name, err)
	}

	now := s.now()
	if schema.has(domain.ColumnCreatedAt) {
		row[domain.ColumnCreatedAt] = now
	}
	if schema.has(domain.ColumnUpdatedAt) {
		row[domain.ColumnUpdatedAt] = now
	}
	row[schema.idField] = id

	value, err := json.Marshal(row)
	if err != nil {
		return 0, domain.NewStorageError("insert", table.Name, fmt.Errorf("encode row: %w", err))
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rowKey(table.Name, id), value)
	})
	if err != nil {
		return 0, domain.NewStorageError("insert", table.Name, err)
	}
	return id, nil
}

// Update сливает поля в существующую строку.
func (s *Store) Update(ctx context.Context, table domain.Table, id int64, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("update", table.Name, err)
	}
	schema, err := s.schema(table)
	if err != nil {
		return domain.NewStorageError("update", table.Name, err)
	}

	changes, err := schema.filter(fields)
	if err != nil {
		return domain.NewStorageError("update", table.Name, err)
	}
	if len(changes) == 0 {
		return nil
	}
	if schema.has(domain.ColumnUpdatedAt) {
		changes[domain.ColumnUpdatedAt] = s.now()
	}

	key := rowKey(table.Name, id)
	err = s.db.Update(func(txn *badger.Txn) error {
		row, err := readRow(txn, key)
		if err != nil {
			return err
		}
		maps.Copy(row, changes)

		value, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		return txn.Set(key, value)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.NewStorageError("update", table.Name, fmt.Errorf("id %d: %w", id, domain.ErrEntityNotFound))
	}
	if err != nil {
		return domain.NewStorageError("update", table.Name, err)
	}
	return nil
}

// DescribeColumns возвращает колонки, зарегистрированные для таблицы.
func (s *Store) DescribeColumns(_ context.Context, table domain.Table) (map[string]struct{}, error) {
	schema, err := s.schema(table)
	if err != nil {
		return nil, domain.NewStorageError("describe", table.Name, err)
	}
	return maps.Clone(schema.columns), nil
}

// FetchRow читает колонки строки. Временные метки возвращаются как time.Time.
func (s *Store) FetchRow(ctx context.Context, table domain.Table, columns []string, id int64) (map[string]any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, domain.NewStorageError("fetch", table.Name, err)
	}
	schema, err := s.schema(table)
	if err != nil {
		return nil, false, domain.NewStorageError("fetch", table.Name, err)
	}
	for _, c := range columns {
		if !schema.has(c) {
			return nil, false, domain.NewStorageError("fetch", table.Name, fmt.Errorf("unknown column %q", c))
		}
	}

	var row map[string]any
	err = s.db.View(func(txn *badger.Txn) error {
		var err error
		row, err = readRow(txn, rowKey(table.Name, id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewStorageError("fetch", table.Name, err)
	}

	result := make(map[string]any, len(columns))
	for _, c := range columns {
		v, ok := row[c]
		if !ok {
			continue
		}
		result[c] = decodeValue(c, schema.idField, v)
	}
	return result, true, nil
}

func (s *Store) schema(table domain.Table) (tableSchema, error) {
	schema, ok := s.tables[table.Name]
	if !ok {
		return tableSchema{}, fmt.Errorf("%w: %s", domain.ErrUnknownTable, table.Name)
	}
	return schema, nil
}

func (s *Store) nextID(table string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.ids[table]
	if !ok {
		var err error
		seq, err = s.db.GetSequence([]byte("id/"+table), idLeaseBandwidth)
		if err != nil {
			return 0, fmt.Errorf("open id sequence: %w", err)
		}
		s.ids[table] = seq
	}

	// badger.Sequence начинает с нуля.
	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}
	return int64(n) + 1, nil
}

// lockCounter захватывает блокировку счётчика и возвращает функцию её снятия.
func (s *Store) lockCounter(key string) func() {
	s.countersMu.Lock()
	lock, ok := s.counters[key]
	if !ok {
		lock = &sync.Mutex{}
		s.counters[key] = lock
	}
	s.countersMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (t tableSchema) has(column string) bool {
	_, ok := t.columns[column]
	return ok
}

func (t tableSchema) filter(fields map[string]any) (map[string]any, error) {
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

func rowKey(table string, id int64) []byte {
	return []byte(fmt.Sprintf("row/%s/%020d", table, id))
}

func readRow(txn *badger.Txn, key []byte) (map[string]any, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}

	var row map[string]any
	err = item.Value(func(val []byte) error {
		dec := json.NewDecoder(bytes.NewReader(val))
		dec.UseNumber()
		return dec.Decode(&row)
	})
	if err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return row, nil
}

func decodeValue(column, idField string, v any) any {
	switch column {
	case domain.ColumnCreatedAt, domain.ColumnUpdatedAt:
		if ts, ok := domain.AsTime(v); ok {
			return ts
		}
	case idField, domain.ColumnStoreID:
		if n, ok := domain.AsInt64(v); ok {
			return n
		}
	}
	return v
}

var _ domain.StorageAdapter = (*Store)(nil)
