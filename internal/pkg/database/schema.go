package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is written in the subset of SQL shared by PostgreSQL and SQLite so the
// same statements back production and the embedded test database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS inventory_locations (
        id            VARCHAR(36)  PRIMARY KEY,
        store_id      VARCHAR(64)  NOT NULL,
        name          VARCHAR(255) NOT NULL,
        type          VARCHAR(32)  NOT NULL,
        is_active     BOOLEAN      NOT NULL DEFAULT TRUE,
        current_stock BIGINT       NOT NULL DEFAULT 0,
        created_at    TIMESTAMP    NOT NULL,
        updated_at    TIMESTAMP    NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_locations_store ON inventory_locations (store_id, is_active, name)`,

	`CREATE TABLE IF NOT EXISTS stock_items (
        id                   VARCHAR(36)  PRIMARY KEY,
        store_id             VARCHAR(64)  NOT NULL,
        product_id           VARCHAR(64)  NOT NULL,
        variation_id         VARCHAR(64),
        variation_attributes TEXT         NOT NULL DEFAULT '{}',
        location_id          VARCHAR(36)  NOT NULL REFERENCES inventory_locations (id),
        location_name        VARCHAR(255) NOT NULL,
        quantity             BIGINT       NOT NULL,
        reserved_quantity    BIGINT       NOT NULL DEFAULT 0,
        available_quantity   BIGINT       NOT NULL,
        status               VARCHAR(32)  NOT NULL,
        selling_price        NUMERIC(12, 2),
        low_stock_threshold  BIGINT,
        version              BIGINT       NOT NULL DEFAULT 1,
        last_movement_at     TIMESTAMP    NOT NULL,
        created_at           TIMESTAMP    NOT NULL,
        updated_at           TIMESTAMP    NOT NULL,
        created_by           VARCHAR(64)  NOT NULL DEFAULT '',
        updated_by           VARCHAR(64)  NOT NULL DEFAULT '',
        CONSTRAINT ck_stock_items_quantity CHECK (quantity >= 0),
        CONSTRAINT ck_stock_items_reserved CHECK (reserved_quantity >= 0 AND reserved_quantity <= quantity),
        CONSTRAINT ck_stock_items_available CHECK (available_quantity = quantity - reserved_quantity)
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_stock_items_tuple ON stock_items (store_id, product_id, (COALESCE(variation_id, '')), location_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_items_location ON stock_items (location_id)`,

	`CREATE TABLE IF NOT EXISTS stock_movements (
        id                VARCHAR(36) PRIMARY KEY,
        store_id          VARCHAR(64) NOT NULL,
        stock_item_id     VARCHAR(36) NOT NULL REFERENCES stock_items (id),
        product_id        VARCHAR(64) NOT NULL,
        variation_id      VARCHAR(64),
        type              VARCHAR(16) NOT NULL,
        quantity          BIGINT      NOT NULL,
        previous_quantity BIGINT      NOT NULL,
        new_quantity      BIGINT      NOT NULL,
        reason            TEXT        NOT NULL DEFAULT '',
        reference_type    VARCHAR(32) NOT NULL,
        reference_id      VARCHAR(64),
        sequence          BIGINT      NOT NULL,
        user_id           VARCHAR(64) NOT NULL DEFAULT '',
        user_name         VARCHAR(255) NOT NULL DEFAULT '',
        created_at        TIMESTAMP   NOT NULL
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_stock_movements_sequence ON stock_movements (stock_item_id, sequence)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_reference ON stock_movements (stock_item_id, reference_type, reference_id)`,

	`CREATE TABLE IF NOT EXISTS stock_transfers (
        id               VARCHAR(36) PRIMARY KEY,
        store_id         VARCHAR(64) NOT NULL,
        from_location_id VARCHAR(36) NOT NULL REFERENCES inventory_locations (id),
        to_location_id   VARCHAR(36) NOT NULL REFERENCES inventory_locations (id),
        status           VARCHAR(16) NOT NULL,
        notes            TEXT        NOT NULL DEFAULT '',
        shipped_at       TIMESTAMP,
        shipped_by       VARCHAR(64),
        received_at      TIMESTAMP,
        received_by      VARCHAR(64),
        cancelled_at     TIMESTAMP,
        cancelled_by     VARCHAR(64),
        created_by       VARCHAR(64) NOT NULL DEFAULT '',
        created_at       TIMESTAMP   NOT NULL,
        updated_at       TIMESTAMP   NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_stock_transfers_store ON stock_transfers (store_id, status, created_at)`,
	`CREATE TABLE IF NOT EXISTS stock_transfer_items (
        id                   VARCHAR(36) PRIMARY KEY,
        transfer_id          VARCHAR(36) NOT NULL REFERENCES stock_transfers (id),
        position             INTEGER     NOT NULL,
        product_id           VARCHAR(64) NOT NULL,
        variation_id         VARCHAR(64),
        quantity             BIGINT      NOT NULL,
        variation_attributes TEXT        NOT NULL DEFAULT '{}'
    )`,
	`CREATE INDEX IF NOT EXISTS idx_stock_transfer_items_transfer ON stock_transfer_items (transfer_id, position)`,

	`CREATE TABLE IF NOT EXISTS low_stock_alerts (
        id                 VARCHAR(36) PRIMARY KEY,
        store_id           VARCHAR(64) NOT NULL,
        product_id         VARCHAR(64) NOT NULL,
        variation_id       VARCHAR(64),
        stock_item_id      VARCHAR(36) NOT NULL REFERENCES stock_items (id),
        current_quantity   BIGINT      NOT NULL,
        threshold_quantity BIGINT      NOT NULL,
        threshold_type     VARCHAR(16) NOT NULL,
        status             VARCHAR(16) NOT NULL,
        notification_sent  BOOLEAN     NOT NULL DEFAULT FALSE,
        resolved_at        TIMESTAMP,
        created_at         TIMESTAMP   NOT NULL,
        updated_at         TIMESTAMP   NOT NULL
    )`,
	// one active alert per stock item
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_low_stock_alerts_active ON low_stock_alerts (stock_item_id) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS idx_low_stock_alerts_store ON low_stock_alerts (store_id, status)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
