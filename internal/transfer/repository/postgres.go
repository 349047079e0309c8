package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-stock-service/internal/apperr"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/database"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

// Create stores the transfer and its items. Callers provide the transaction.
func (r *PGRepository) Create(ctx context.Context, t *model.StockTransfer) error {
	q := database.Conn(ctx, r.DB)

	transferQuery := `
        INSERT INTO stock_transfers (
            id, store_id, from_location_id, to_location_id, status, notes,
            shipped_at, shipped_by, received_at, received_by, cancelled_at, cancelled_by,
            created_by, created_at, updated_at
        ) VALUES (
            :id, :store_id, :from_location_id, :to_location_id, :status, :notes,
            :shipped_at, :shipped_by, :received_at, :received_by, :cancelled_at, :cancelled_by,
            :created_by, :created_at, :updated_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, q, transferQuery, t); err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	itemQuery := `
        INSERT INTO stock_transfer_items (id, transfer_id, position, product_id, variation_id, quantity, variation_attributes)
        VALUES (:id, :transfer_id, :position, :product_id, :variation_id, :quantity, :variation_attributes)
    `
	for i := range t.Items {
		if _, err := sqlx.NamedExecContext(ctx, q, itemQuery, &t.Items[i]); err != nil {
			return fmt.Errorf("failed to insert transfer item: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.StockTransfer, error) {
	q := database.Conn(ctx, r.DB)
	var t model.StockTransfer
	err := sqlx.GetContext(ctx, q, &t, q.Rebind(`SELECT * FROM stock_transfers WHERE id = ? LIMIT 1`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	transfers := []model.StockTransfer{t}
	if err := r.attachItems(ctx, transfers); err != nil {
		return nil, err
	}
	return &transfers[0], nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.TransferFilters) ([]model.StockTransfer, int, error) {
	q := database.Conn(ctx, r.DB)

	conditions := []string{"store_id = ?"}
	args := []interface{}{f.StoreID}
	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status)
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := sqlx.GetContext(ctx, q, &total, q.Rebind("SELECT count(*) FROM stock_transfers"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	query := fmt.Sprintf("SELECT * FROM stock_transfers%s ORDER BY created_at DESC, id ASC LIMIT %d OFFSET %d", whereClause, f.Limit, offset)

	transfers := []model.StockTransfer{}
	if err := sqlx.SelectContext(ctx, q, &transfers, q.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	if err := r.attachItems(ctx, transfers); err != nil {
		return nil, 0, err
	}
	return transfers, total, nil
}

func (r *PGRepository) attachItems(ctx context.Context, transfers []model.StockTransfer) error {
	if len(transfers) == 0 {
		return nil
	}
	ids := make([]string, len(transfers))
	byID := make(map[string]int, len(transfers))
	for i, t := range transfers {
		ids[i] = t.ID
		byID[t.ID] = i
		transfers[i].Items = []model.TransferItem{}
	}

	q := database.Conn(ctx, r.DB)
	query, args, err := sqlx.In(`SELECT * FROM stock_transfer_items WHERE transfer_id IN (?) ORDER BY transfer_id, position`, ids)
	if err != nil {
		return err
	}
	var items []model.TransferItem
	if err := sqlx.SelectContext(ctx, q, &items, q.Rebind(query), args...); err != nil {
		return err
	}
	for _, it := range items {
		i := byID[it.TransferID]
		transfers[i].Items = append(transfers[i].Items, it)
	}
	return nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, t *model.StockTransfer, from model.TransferStatus) error {
	query := `
        UPDATE stock_transfers
        SET status = :status,
            shipped_at = :shipped_at,
            shipped_by = :shipped_by,
            received_at = :received_at,
            received_by = :received_by,
            cancelled_at = :cancelled_at,
            cancelled_by = :cancelled_by,
            updated_at = :updated_at
        WHERE id = :id AND status = :from_status
    `
	arg := map[string]interface{}{
		"id":           t.ID,
		"status":       t.Status,
		"shipped_at":   t.ShippedAt,
		"shipped_by":   t.ShippedBy,
		"received_at":  t.ReceivedAt,
		"received_by":  t.ReceivedBy,
		"cancelled_at": t.CancelledAt,
		"cancelled_by": t.CancelledBy,
		"updated_at":   t.UpdatedAt,
		"from_status":  from,
	}
	res, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.DB), query, arg)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.Conflict("transfer %s is no longer %s", t.ID, from)
	}
	return nil
}
