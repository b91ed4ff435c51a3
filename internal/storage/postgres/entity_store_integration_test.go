package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/sales/internal/domain"
	"github.com/vladislavdragonenkov/sales/internal/service/lifecycle"
)

func TestEntityStore_PostgresInsertUpdateFetch(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	entities := NewEntityStore(store)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table := domain.OrderType.Table
	id, err := entities.Insert(ctx, table, map[string]any{
		domain.ColumnIncrementID: "100000001",
		domain.ColumnStoreID:     int64(1),
		"status":                 "pending",
	})
	require.NoError(t, err)
	require.Positive(t, id)

	columns, err := entities.DescribeColumns(ctx, table)
	require.NoError(t, err)
	assert.Contains(t, columns, domain.ColumnCreatedAt)
	assert.Contains(t, columns, domain.ColumnUpdatedAt)

	row, found, err := entities.FetchRow(ctx, table, []string{domain.ColumnCreatedAt, domain.ColumnUpdatedAt}, id)
	require.NoError(t, err)
	require.True(t, found)
	createdAt, ok := domain.AsTime(row[domain.ColumnCreatedAt])
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, entities.Update(ctx, table, id, map[string]any{"status": "complete"}))

	row, _, err = entities.FetchRow(ctx, table, []string{"status", domain.ColumnUpdatedAt}, id)
	require.NoError(t, err)
	assert.Equal(t, "complete", row["status"])
	updatedAt, ok := domain.AsTime(row[domain.ColumnUpdatedAt])
	require.True(t, ok)
	assert.True(t, updatedAt.After(createdAt), "trigger must bump updated_at")

	err = entities.Update(ctx, table, id+1000, map[string]any{"status": "x"})
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)

	_, found, err = entities.FetchRow(ctx, table, []string{"status"}, id+1000)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = entities.DescribeColumns(ctx, domain.Table{Name: "sales_quote", IDField: "entity_id"})
	assert.ErrorIs(t, err, domain.ErrUnknownTable)
}

func TestEntityStore_PostgresPersister(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	entities := NewEntityStore(store)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	persister := lifecycle.NewPersister(domain.OrderType, entities, NewSequence(store, domain.EntityOrder))

	order := domain.NewEntity(1).Set("status", "pending").Set("customer_email", "a@example.com")
	_, err := persister.Save(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, "100000001", order.IncrementID)
	assert.False(t, order.CreatedAt.IsZero())
	assert.False(t, order.UpdatedAt.IsZero())

	loaded, err := persister.Load(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", loaded.String("customer_email"))

	txn := domain.NewEntity(0).Set(domain.ColumnOrderID, order.ID).Set(domain.ColumnTxnID, "ch_1")
	_, err = lifecycle.NewPersister(domain.TransactionType, entities, nil).Save(ctx, txn)
	require.NoError(t, err)
	assert.True(t, txn.UpdatedAt.IsZero(), "transaction table has no updated_at")
}

func TestSequence_PostgresConcurrentNext(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seq := NewSequence(store, domain.EntityInvoice)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const total = 20
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, total)
		wg   sync.WaitGroup
	)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := seq.Next(ctx, "store_2")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			seen[value] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, total)

	_, err := seq.Next(ctx, "bogus")
	assert.True(t, domain.IsAllocationError(err))
}

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)
	ctx := context.Background()

	stored1, err := repo.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.EntityOrder,
		AggregateID:   "1",
		EventType:     "sales.entity.saved",
		Payload:       []byte(`{"entity_id":1}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, stored1.ID)

	stored2, err := repo.Enqueue(ctx, domain.OutboxMessage{
		ID:            "outbox-fixed-id",
		AggregateType: domain.EntityInvoice,
		AggregateID:   "2",
		EventType:     "sales.entity.saved",
		Payload:       []byte(`{"entity_id":2}`),
	})
	require.NoError(t, err)

	pending, err := repo.PullPending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PendingCount)
	assert.False(t, stats.OldestPendingAt.IsZero())

	require.NoError(t, repo.MarkSent(ctx, stored1.ID))
	require.NoError(t, repo.MarkFailed(ctx, stored2.ID))

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount)

	if err := repo.MarkSent(ctx, "missing-outbox"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish on mark sent missing id, got %v", err)
	}
}

func TestSendLogRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewSendLogRepository(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	require.NoError(t, repo.Record(ctx, domain.SendRecord{ProductID: 1, Sender: "10.0.0.1", SentAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, repo.Record(ctx, domain.SendRecord{ProductID: 1, Sender: "10.0.0.1", SentAt: now}))

	count, err := repo.CountSince(ctx, "10.0.0.1", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	deleted, err := repo.DeleteBefore(ctx, now.Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = store.DB().ExecContext(ctx, `INSERT INTO catalog_product (entity_id, name, visible) VALUES (7, 'Lamp', TRUE), (8, 'Hidden', FALSE)`)
	require.NoError(t, err)

	catalog := NewProductCatalog(store)
	product, err := catalog.GetProduct(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", product.Name)
	_, err = catalog.GetProduct(ctx, 8)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = catalog.GetProduct(ctx, 9)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
