package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperr"
	"github.com/fekuna/omnipos-stock-service/internal/location/dto"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/database"
	"github.com/jmoiron/sqlx"
)

// PGRepository speaks the SQL subset shared by PostgreSQL and SQLite; queries
// are written with ? placeholders and rebound for the active driver.
type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, l *model.InventoryLocation) error {
	query := `
        INSERT INTO inventory_locations (id, store_id, name, type, is_active, current_stock, created_at, updated_at)
        VALUES (:id, :store_id, :name, :type, :is_active, :current_stock, :created_at, :updated_at)
    `
	_, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.DB), query, l)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.InventoryLocation, error) {
	q := database.Conn(ctx, r.DB)
	var l model.InventoryLocation
	err := sqlx.GetContext(ctx, q, &l, q.Rebind(`SELECT * FROM inventory_locations WHERE id = ? LIMIT 1`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// LockByID reads the location and locks its row until the transaction ends.
func (r *PGRepository) LockByID(ctx context.Context, id string) (*model.InventoryLocation, error) {
	q := database.Conn(ctx, r.DB)
	var l model.InventoryLocation
	err := sqlx.GetContext(ctx, q, &l, q.Rebind(`SELECT * FROM inventory_locations WHERE id = ?`+database.ForUpdate(q)), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *PGRepository) CountTransfersInto(ctx context.Context, id string, status model.TransferStatus) (int, error) {
	q := database.Conn(ctx, r.DB)
	var n int
	err := sqlx.GetContext(ctx, q, &n,
		q.Rebind(`SELECT COUNT(*) FROM stock_transfers WHERE to_location_id = ? AND status = ?`), id, status)
	return n, err
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.LocationFilters) ([]model.InventoryLocation, error) {
	q := database.Conn(ctx, r.DB)

	conditions := []string{}
	args := []interface{}{}
	if f.StoreID != "" {
		conditions = append(conditions, "store_id = ?")
		args = append(args, f.StoreID)
	}
	if f.ActiveOnly {
		conditions = append(conditions, "is_active = ?")
		args = append(args, true)
	}

	query := "SELECT * FROM inventory_locations"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	locations := []model.InventoryLocation{}
	err := sqlx.SelectContext(ctx, q, &locations, q.Rebind(query), args...)
	return locations, err
}

func (r *PGRepository) Update(ctx context.Context, l *model.InventoryLocation) error {
	query := `
        UPDATE inventory_locations
        SET name = :name,
            type = :type,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id AND store_id = :store_id
    `
	_, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.DB), query, l)
	return err
}

func (r *PGRepository) AdjustStock(ctx context.Context, id string, delta int64) error {
	q := database.Conn(ctx, r.DB)
	res, err := q.ExecContext(ctx,
		q.Rebind(`UPDATE inventory_locations SET current_stock = current_stock + ?, updated_at = ? WHERE id = ?`),
		delta, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("location %s", id)
	}
	return nil
}

func (r *PGRepository) SumStockItems(ctx context.Context, id string) (int64, error) {
	q := database.Conn(ctx, r.DB)
	var sum int64
	err := sqlx.GetContext(ctx, q, &sum,
		q.Rebind(`SELECT CAST(COALESCE(SUM(quantity), 0) AS BIGINT) FROM stock_items WHERE location_id = ?`), id)
	return sum, err
}

func (r *PGRepository) SetStock(ctx context.Context, id string, value int64) error {
	q := database.Conn(ctx, r.DB)
	_, err := q.ExecContext(ctx,
		q.Rebind(`UPDATE inventory_locations SET current_stock = ?, updated_at = ? WHERE id = ?`),
		value, time.Now().UTC(), id)
	return err
}
