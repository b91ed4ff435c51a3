package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// EntityStore — PostgreSQL-реализация StorageAdapter для sales-таблиц.
// Набор колонок таблицы кэшируется после первого DescribeColumns.
type EntityStore struct {
	db *sql.DB

	mu      sync.RWMutex
	columns map[string]map[string]struct{}
}

// NewEntityStore создаёт адаптер поверх Store.
func NewEntityStore(store *Store) *EntityStore {
	return &EntityStore{
		db:      store.DB(),
		columns: make(map[string]map[string]struct{}),
	}
}

// Insert вставляет строку и возвращает значение первичного ключа.
func (s *EntityStore) Insert(ctx context.Context, table domain.Table, fields map[string]any) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args := buildInsert(table, fields)
	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, domain.NewStorageError("insert", table.Name, translateError(err))
	}
	return id, nil
}

// Update обновляет строку по первичному ключу. Пустой набор полей — no-op.
func (s *EntityStore) Update(ctx context.Context, table domain.Table, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args := buildUpdate(table, id, fields)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.NewStorageError("update", table.Name, translateError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError("update", table.Name, fmt.Errorf("rows affected: %w", err))
	}
	if affected == 0 {
		return domain.NewStorageError("update", table.Name, fmt.Errorf("id %d: %w", id, domain.ErrEntityNotFound))
	}
	return nil
}

// DescribeColumns читает колонки таблицы из information_schema текущей схемы.
func (s *EntityStore) DescribeColumns(ctx context.Context, table domain.Table) (map[string]struct{}, error) {
	s.mu.RLock()
	cached, ok := s.columns[table.Name]
	s.mu.RUnlock()
	if ok {
		return maps.Clone(cached), nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, table.Name)
	if err != nil {
		return nil, domain.NewStorageError("describe", table.Name, err)
	}
	defer rows.Close()

	columns := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, domain.NewStorageError("describe", table.Name, fmt.Errorf("scan column: %w", err))
		}
		columns[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("describe", table.Name, fmt.Errorf("iterate columns: %w", err))
	}
	if len(columns) == 0 {
		return nil, domain.NewStorageError("describe", table.Name, domain.ErrUnknownTable)
	}

	s.mu.Lock()
	s.columns[table.Name] = columns
	s.mu.Unlock()

	return maps.Clone(columns), nil
}

// FetchRow читает указанные колонки строки по первичному ключу.
func (s *EntityStore) FetchRow(ctx context.Context, table domain.Table, columns []string, id int64) (map[string]any, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	err := s.db.QueryRowContext(ctx, buildSelect(table, columns), id).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewStorageError("fetch", table.Name, translateError(err))
	}

	row := make(map[string]any, len(columns))
	for i, c := range columns {
		row[c] = normalizeValue(values[i])
	}
	return row, true, nil
}

// ForgetColumns сбрасывает кэш колонок; нужен после миграций.
func (s *EntityStore) ForgetColumns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.columns)
}

func buildInsert(table domain.Table, fields map[string]any) (string, []any) {
	name := quoteIdent(table.Name)
	idField := quoteIdent(table.IDField)
	if len(fields) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", name, idField), nil
	}

	keys := slices.Sorted(maps.Keys(fields))
	columns := make([]string, len(keys))
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		columns[i] = quoteIdent(k)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = fields[k]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		name, strings.Join(columns, ", "), strings.Join(placeholders, ", "), idField,
	)
	return query, args
}

func buildUpdate(table domain.Table, id int64, fields map[string]any) (string, []any) {
	keys := slices.Sorted(maps.Keys(fields))
	assignments := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		assignments[i] = fmt.Sprintf("%s = $%d", quoteIdent(k), i+1)
		args = append(args, fields[k])
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d",
		quoteIdent(table.Name), strings.Join(assignments, ", "), quoteIdent(table.IDField), len(args),
	)
	return query, args
}

func buildSelect(table domain.Table, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		strings.Join(quoted, ", "), quoteIdent(table.Name), quoteIdent(table.IDField),
	)
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func translateError(err error) error {
	switch pgErrorCode(err) {
	case pgUndefinedTable:
		return fmt.Errorf("%w: %w", domain.ErrUnknownTable, err)
	case pgUndefinedColumn:
		return fmt.Errorf("unknown column: %w", err)
	case pgUniqueViolation:
		return fmt.Errorf("duplicate key: %w", err)
	default:
		return err
	}
}

var _ domain.StorageAdapter = (*EntityStore)(nil)
