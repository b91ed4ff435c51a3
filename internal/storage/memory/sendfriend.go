package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// SendLogRepository — in-memory журнал отправок "рассказать другу".
type SendLogRepository struct {
	mu      sync.RWMutex
	records []domain.SendRecord
}

// NewSendLogRepository создаёт пустой журнал.
func NewSendLogRepository() *SendLogRepository {
	return &SendLogRepository{}
}

// Record добавляет отправку в журнал.
func (r *SendLogRepository) Record(_ context.Context, record domain.SendRecord) error {
	record.Sender = strings.TrimSpace(record.Sender)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SentAt.IsZero() {
		record.SentAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

// CountSince считает отправки sender начиная с since включительно.
func (r *SendLogRepository) CountSince(_ context.Context, sender string, since time.Time) (int, error) {
	sender = strings.TrimSpace(sender)

	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, rec := range r.records {
		if rec.Sender == sender && !rec.SentAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// DeleteBefore удаляет до limit записей старше before (limit <= 0 — без ограничения).
func (r *SendLogRepository) DeleteBefore(_ context.Context, before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	removed := 0
	for _, rec := range r.records {
		if rec.SentAt.Before(before) && (limit <= 0 || removed < limit) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return removed, nil
}

// ProductCatalog — in-memory каталог товаров.
type ProductCatalog struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
}

// NewProductCatalog создаёт каталог из списка товаров.
func NewProductCatalog(products ...domain.Product) *ProductCatalog {
	c := &ProductCatalog{products: make(map[int64]domain.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// ParseProducts разбирает список видимых товаров вида "7:Tent,8:Camping stove".
func ParseProducts(seed string) ([]domain.Product, error) {
	var products []domain.Product
	for _, item := range strings.Split(seed, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		rawID, name, ok := strings.Cut(item, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("product %q: expected <id>:<name>", item)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("product %q: invalid id", item)
		}
		products = append(products, domain.Product{ID: id, Name: name, Visible: true})
	}
	return products, nil
}

// Put добавляет или заменяет товар.
func (c *ProductCatalog) Put(product domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[product.ID] = product
}

// GetProduct возвращает видимый товар или ErrProductNotFound.
func (c *ProductCatalog) GetProduct(_ context.Context, productID int64) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	product, ok := c.products[productID]
	if !ok || !product.Visible {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

var (
	_ domain.SendLogRepository = (*SendLogRepository)(nil)
	_ domain.ProductCatalog    = (*ProductCatalog)(nil)
)
