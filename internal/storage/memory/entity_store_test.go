package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/sales/internal/domain"
	"github.com/vladislavdragonenkov/sales/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/sales/internal/storage/memory"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newClock() *stepClock {
	return &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestEntityStore_InsertFetch(t *testing.T) {
	t.Parallel()

	clock := newClock()
	store := memory.NewEntityStore([]domain.EntityType{domain.OrderType}, memory.WithClock(clock.Now))
	ctx := context.Background()
	table := domain.OrderType.Table

	id, err := store.Insert(ctx, table, map[string]any{
		"status":              "pending",
		"not_a_column":        "dropped",
		domain.ColumnEntityID: int64(999),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	row, found, err := store.FetchRow(ctx, table, domain.OrderType.Columns, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1), row[domain.ColumnEntityID])
	assert.Equal(t, "pending", row["status"])
	assert.NotContains(t, row, "not_a_column")
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), row[domain.ColumnCreatedAt])
	assert.Equal(t, row[domain.ColumnCreatedAt], row[domain.ColumnUpdatedAt])

	_, found, err = store.FetchRow(ctx, table, []string{"status"}, 42)
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = store.FetchRow(ctx, table, []string{"bogus"}, id)
	assert.True(t, domain.IsStorageError(err))
}

func TestEntityStore_UpdateTouchesUpdatedAt(t *testing.T) {
	t.Parallel()

	clock := newClock()
	store := memory.NewEntityStore([]domain.EntityType{domain.OrderType}, memory.WithClock(clock.Now))
	ctx := context.Background()
	table := domain.OrderType.Table

	id, err := store.Insert(ctx, table, map[string]any{"status": "pending"})
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, table, id, map[string]any{"status": "complete"}))
	row, _, err := store.FetchRow(ctx, table, []string{"status", domain.ColumnCreatedAt, domain.ColumnUpdatedAt}, id)
	require.NoError(t, err)
	assert.Equal(t, "complete", row["status"])
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), row[domain.ColumnCreatedAt])
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 2, 0, time.UTC), row[domain.ColumnUpdatedAt])

	require.NoError(t, store.Update(ctx, table, id, map[string]any{}))
	row, _, err = store.FetchRow(ctx, table, []string{domain.ColumnUpdatedAt}, id)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 2, 0, time.UTC), row[domain.ColumnUpdatedAt], "empty update is a no-op")

	err = store.Update(ctx, table, 77, map[string]any{"status": "x"})
	assert.True(t, domain.IsStorageError(err))
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestEntityStore_UnknownColumnIsStorageError(t *testing.T) {
	t.Parallel()

	store := memory.NewEntityStore([]domain.EntityType{domain.OrderType})
	ctx := context.Background()
	table := domain.OrderType.Table

	_, err := store.Insert(ctx, table, map[string]any{"status": "pending", "stauts": "typo"})
	require.Error(t, err)
	assert.True(t, domain.IsStorageError(err))
	assert.ErrorContains(t, err, "unknown column")
	assert.Zero(t, store.Count(table), "rejected insert must not create a row")

	id, err := store.Insert(ctx, table, map[string]any{"status": "pending"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	err = store.Update(ctx, table, id, map[string]any{"stauts": "complete"})
	assert.True(t, domain.IsStorageError(err))
	assert.ErrorContains(t, err, "unknown column")

	row, _, err := store.FetchRow(ctx, table, []string{"status"}, id)
	require.NoError(t, err)
	assert.Equal(t, "pending", row["status"])
}

func TestEntityStore_UnknownTable(t *testing.T) {
	t.Parallel()

	store := memory.NewEntityStore(nil)
	ctx := context.Background()
	table := domain.Table{Name: "sales_quote", IDField: "entity_id"}

	_, err := store.Insert(ctx, table, nil)
	assert.ErrorIs(t, err, domain.ErrUnknownTable)
	_, err = store.DescribeColumns(ctx, table)
	assert.ErrorIs(t, err, domain.ErrUnknownTable)
	assert.Zero(t, store.Count(table))
}

func TestEntityStore_CancelledContext(t *testing.T) {
	t.Parallel()

	store := memory.NewEntityStore([]domain.EntityType{domain.OrderType})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Insert(ctx, domain.OrderType.Table, map[string]any{"status": "x"})
	assert.True(t, domain.IsStorageError(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEntityStore_PersisterRoundTrip(t *testing.T) {
	t.Parallel()

	clock := newClock()
	store := memory.NewEntityStore([]domain.EntityType{domain.OrderType}, memory.WithClock(clock.Now))
	sequences := memory.NewSequences()
	registry := lifecycle.NewRegistry(store, sequences.For, []domain.EntityType{domain.OrderType})

	persister, err := registry.Get(domain.EntityOrder)
	require.NoError(t, err)

	ctx := context.Background()
	order := domain.NewEntity(1).Set("status", "pending").Set("grand_total", "12.50")
	_, err = persister.Save(ctx, order)
	require.NoError(t, err)

	assert.Equal(t, int64(1), order.ID)
	assert.Equal(t, "100000001", order.IncrementID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), order.CreatedAt)
	assert.Equal(t, order.CreatedAt, order.UpdatedAt)

	order.Set("status", "processing")
	_, err = persister.Save(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), order.CreatedAt)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 2, 0, time.UTC), order.UpdatedAt)

	loaded, err := persister.Load(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "processing", loaded.String("status"))
	assert.Equal(t, "100000001", loaded.IncrementID)
	assert.Equal(t, int64(1), loaded.StoreID)
	assert.Equal(t, 1, store.Count(domain.OrderType.Table))
}

func TestSequence_ConcurrentCallsNeverCollide(t *testing.T) {
	t.Parallel()

	seq := memory.NewSequence()
	ctx := context.Background()

	const workers = 16
	const perWorker = 50

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				value, err := seq.Next(ctx, "store_2")
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				seen[value] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.Contains(t, seen, fmt.Sprintf("2%08d", workers*perWorker))
}

func TestSequence_PartitionsAreIndependent(t *testing.T) {
	t.Parallel()

	sequences := memory.NewSequences()
	ctx := context.Background()

	first, err := sequences.For(domain.EntityOrder).Next(ctx, "store_1")
	require.NoError(t, err)
	second, err := sequences.For(domain.EntityOrder).Next(ctx, "store_3")
	require.NoError(t, err)
	invoice, err := sequences.For(domain.EntityInvoice).Next(ctx, "store_1")
	require.NoError(t, err)

	assert.Equal(t, "100000001", first)
	assert.Equal(t, "300000001", second)
	assert.Equal(t, "100000001", invoice)

	_, err = sequences.For(domain.EntityOrder).Next(ctx, "default")
	assert.True(t, domain.IsAllocationError(err))
	assert.ErrorIs(t, err, domain.ErrInvalidPartitionKey)
}
