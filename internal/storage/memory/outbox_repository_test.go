package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	repo := NewOutboxRepository()
	ctx := context.Background()

	first, err := repo.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.EntityOrder,
		AggregateID:   "1",
		EventType:     "sales.entity.saved",
		Payload:       []byte(`{"entity_id":1}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := repo.Enqueue(ctx, domain.OutboxMessage{ID: "fixed", AggregateType: domain.EntityInvoice})
	require.NoError(t, err)
	assert.Equal(t, "fixed", second.ID)

	pending, err := repo.PullPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, "fixed", pending[1].ID)

	limited, err := repo.PullPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOutboxRepository_MarkSentAndFailed(t *testing.T) {
	repo := NewOutboxRepository()
	ctx := context.Background()

	sent, err := repo.Enqueue(ctx, domain.OutboxMessage{AggregateType: domain.EntityOrder})
	require.NoError(t, err)
	failed, err := repo.Enqueue(ctx, domain.OutboxMessage{AggregateType: domain.EntityOrder})
	require.NoError(t, err)

	require.NoError(t, repo.MarkSent(ctx, sent.ID))
	require.NoError(t, repo.MarkFailed(ctx, failed.ID))
	assert.ErrorIs(t, repo.MarkFailed(ctx, "missing"), domain.ErrOutboxPublish)

	status, ok := repo.Status(sent.ID)
	require.True(t, ok)
	assert.Equal(t, "sent", status)
	status, _ = repo.Status(failed.ID)
	assert.Equal(t, "failed", status)

	pending, err := repo.PullPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxRepository_Stats(t *testing.T) {
	repo := NewOutboxRepository()
	ctx := context.Background()

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount)
	assert.True(t, stats.OldestPendingAt.IsZero())

	before := time.Now().UTC()
	msg, err := repo.Enqueue(ctx, domain.OutboxMessage{})
	require.NoError(t, err)
	_, err = repo.Enqueue(ctx, domain.OutboxMessage{})
	require.NoError(t, err)

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PendingCount)
	assert.False(t, stats.OldestPendingAt.Before(before))

	require.NoError(t, repo.MarkSent(ctx, msg.ID))
	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingCount)
}
