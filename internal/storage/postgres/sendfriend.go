package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// SendLogRepository хранит журнал "рассказать другу" в sendfriend_log.
type SendLogRepository struct {
	db *sql.DB
}

// NewSendLogRepository создаёт репозиторий поверх Store.
func NewSendLogRepository(store *Store) *SendLogRepository {
	return &SendLogRepository{db: store.DB()}
}

// Record сохраняет отправку.
func (r *SendLogRepository) Record(ctx context.Context, record domain.SendRecord) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SentAt.IsZero() {
		record.SentAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sendfriend_log (log_id, product_id, sender, sent_at)
		VALUES ($1, $2, $3, $4)
	`, record.ID, record.ProductID, strings.TrimSpace(record.Sender), record.SentAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("send log %s already recorded: %w", record.ID, err)
		}
		return fmt.Errorf("insert send log: %w", err)
	}
	return nil
}

// CountSince считает отправки sender начиная с since.
func (r *SendLogRepository) CountSince(ctx context.Context, sender string, since time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sendfriend_log
		WHERE sender = $1 AND sent_at >= $2
	`, strings.TrimSpace(sender), since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count send log: %w", err)
	}
	return count, nil
}

// DeleteBefore удаляет до limit записей старше before.
func (r *SendLogRepository) DeleteBefore(ctx context.Context, before time.Time, limit int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 500
	}

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM sendfriend_log
		WHERE log_id IN (
			SELECT log_id FROM sendfriend_log
			WHERE sent_at < $1
			ORDER BY sent_at
			LIMIT $2
		)
	`, before, limit)
	if err != nil {
		return 0, fmt.Errorf("delete send log: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for send log cleanup: %w", err)
	}
	return int(affected), nil
}

// ProductCatalog читает товары из catalog_product.
type ProductCatalog struct {
	db *sql.DB
}

// NewProductCatalog создаёт каталог поверх Store.
func NewProductCatalog(store *Store) *ProductCatalog {
	return &ProductCatalog{db: store.DB()}
}

// GetProduct возвращает видимый товар.
func (c *ProductCatalog) GetProduct(ctx context.Context, productID int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	product := domain.Product{ID: productID}
	err := c.db.QueryRowContext(ctx, `
		SELECT name, visible FROM catalog_product WHERE entity_id = $1
	`, productID).Scan(&product.Name, &product.Visible)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %d: %w", productID, err)
	}
	if !product.Visible {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

var (
	_ domain.SendLogRepository = (*SendLogRepository)(nil)
	_ domain.ProductCatalog    = (*ProductCatalog)(nil)
)
