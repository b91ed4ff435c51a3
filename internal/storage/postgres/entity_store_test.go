package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

func TestBuildInsert(t *testing.T) {
	t.Parallel()

	query, args := buildInsert(domain.OrderType.Table, map[string]any{
		"status":                 "pending",
		domain.ColumnIncrementID: "100000001",
		domain.ColumnStoreID:     int64(1),
	})
	assert.Equal(t,
		`INSERT INTO "sales_order" ("increment_id", "status", "store_id") VALUES ($1, $2, $3) RETURNING "entity_id"`,
		query,
	)
	assert.Equal(t, []any{"100000001", "pending", int64(1)}, args)

	query, args = buildInsert(domain.TransactionType.Table, nil)
	assert.Equal(t, `INSERT INTO "sales_payment_transaction" DEFAULT VALUES RETURNING "transaction_id"`, query)
	assert.Empty(t, args)
}

func TestBuildUpdate(t *testing.T) {
	t.Parallel()

	query, args := buildUpdate(domain.OrderType.Table, 42, map[string]any{
		"status": "complete",
		"state":  "closed",
	})
	assert.Equal(t, `UPDATE "sales_order" SET "state" = $1, "status" = $2 WHERE "entity_id" = $3`, query)
	assert.Equal(t, []any{"closed", "complete", int64(42)}, args)
}

func TestBuildSelect(t *testing.T) {
	t.Parallel()

	query := buildSelect(domain.OrderType.Table, []string{domain.ColumnCreatedAt, domain.ColumnUpdatedAt})
	assert.Equal(t, `SELECT "created_at", "updated_at" FROM "sales_order" WHERE "entity_id" = $1`, query)
}

func TestQuoteIdentEscapesQuotes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}

func TestTranslateError(t *testing.T) {
	t.Parallel()

	err := translateError(&pgconn.PgError{Code: pgUndefinedTable})
	assert.ErrorIs(t, err, domain.ErrUnknownTable)

	var pgErr *pgconn.PgError
	require.ErrorAs(t, translateError(&pgconn.PgError{Code: pgUniqueViolation}), &pgErr)
	assert.True(t, isUniqueViolation(translateError(&pgconn.PgError{Code: pgUniqueViolation})))

	plain := errors.New("plain error")
	assert.Same(t, plain, translateError(plain))
	assert.False(t, isUniqueViolation(plain))
}

func TestNormalizeValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "12.5000", normalizeValue([]byte("12.5000")))
	assert.Equal(t, int64(3), normalizeValue(int64(3)))
	assert.Nil(t, normalizeValue(nil))
}
