// Package testutil provides an embedded database running the production schema.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/fekuna/omnipos-stock-service/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// NewDB returns a fresh, migrated in-memory SQLite database closed at test end.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := database.NewSQLite(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
