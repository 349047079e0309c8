package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *TxManager {
	t.Helper()
	db, err := NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return NewTxManager(db)
}

func insertLocation(ctx context.Context, m *TxManager, id string) error {
	now := time.Now().UTC()
	q := Conn(ctx, m.db)
	_, err := q.ExecContext(ctx, q.Rebind(`INSERT INTO inventory_locations (id, store_id, name, type, is_active, current_stock, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		id, "store-1", "Main", "warehouse", true, 0, now, now)
	return err
}

func countLocations(t *testing.T, m *TxManager) int {
	t.Helper()
	var n int
	require.NoError(t, m.db.Get(&n, `SELECT count(*) FROM inventory_locations`))
	return n
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	m := newDB(t)
	ctx := context.Background()

	err := m.WithinTx(ctx, func(ctx context.Context) error {
		assert.True(t, InTx(ctx))
		return insertLocation(ctx, m, "loc-1")
	})

	require.NoError(t, err)
	assert.Equal(t, 1, countLocations(t, m))
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	m := newDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.WithinTx(ctx, func(ctx context.Context) error {
		if err := insertLocation(ctx, m, "loc-1"); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countLocations(t, m))
}

func TestWithinTx_NestedCallJoinsOuter(t *testing.T) {
	m := newDB(t)
	ctx := context.Background()
	boom := errors.New("outer failed")

	err := m.WithinTx(ctx, func(ctx context.Context) error {
		if err := m.WithinTx(ctx, func(ctx context.Context) error {
			return insertLocation(ctx, m, "loc-1")
		}); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countLocations(t, m), "inner work must roll back with the outer transaction")
}

func TestInTx_FalseWithoutTransaction(t *testing.T) {
	assert.False(t, InTx(context.Background()))
}

func TestIsUniqueViolation(t *testing.T) {
	m := newDB(t)
	ctx := context.Background()

	require.NoError(t, insertLocation(ctx, m, "loc-dup"))
	err := insertLocation(ctx, m, "loc-dup")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestForUpdate(t *testing.T) {
	m := newDB(t)
	assert.Empty(t, ForUpdate(m.db))

	pg := sqlx.NewDb(m.db.DB, "pgx")
	assert.Equal(t, " FOR UPDATE", ForUpdate(pg))
}
