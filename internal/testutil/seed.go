package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SeedLocation inserts an active location and returns its id.
func SeedLocation(t testing.TB, db *sqlx.DB, storeID, locationType string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := db.Exec(db.Rebind(`INSERT INTO inventory_locations (id, store_id, name, type, is_active, current_stock, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, 0, ?, ?)`), id, storeID, "loc-"+id[:8], locationType, true, now, now)
	if err != nil {
		t.Fatalf("seed location: %v", err)
	}
	return id
}

// SeedStockItem inserts a raw ledger row, bypassing movements and counters.
func SeedStockItem(t testing.TB, db *sqlx.DB, storeID, locationID string, quantity, reserved int64) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := db.Exec(db.Rebind(`INSERT INTO stock_items
        (id, store_id, product_id, location_id, location_name, quantity, reserved_quantity, available_quantity, status, last_movement_at, created_at, updated_at)
        VALUES (?, ?, ?, ?, 'seeded', ?, ?, ?, 'available', ?, ?, ?)`),
		id, storeID, uuid.NewString(), locationID, quantity, reserved, quantity-reserved, now, now, now)
	if err != nil {
		t.Fatalf("seed stock item: %v", err)
	}
	return id
}
