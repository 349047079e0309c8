package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-stock-service/internal/alert/dto"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/database"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, a *model.LowStockAlert) error {
	query := `
        INSERT INTO low_stock_alerts (
            id, store_id, product_id, variation_id, stock_item_id, current_quantity,
            threshold_quantity, threshold_type, status, notification_sent, resolved_at,
            created_at, updated_at
        ) VALUES (
            :id, :store_id, :product_id, :variation_id, :stock_item_id, :current_quantity,
            :threshold_quantity, :threshold_type, :status, :notification_sent, :resolved_at,
            :created_at, :updated_at
        )
    `
	_, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.DB), query, a)
	return err
}

func (r *PGRepository) FindActiveByStockItem(ctx context.Context, stockItemID string) (*model.LowStockAlert, error) {
	q := database.Conn(ctx, r.DB)
	var a model.LowStockAlert
	err := sqlx.GetContext(ctx, q, &a,
		q.Rebind(`SELECT * FROM low_stock_alerts WHERE stock_item_id = ? AND status = ? LIMIT 1`),
		stockItemID, model.AlertActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *PGRepository) Update(ctx context.Context, a *model.LowStockAlert) error {
	query := `
        UPDATE low_stock_alerts
        SET current_quantity = :current_quantity,
            threshold_quantity = :threshold_quantity,
            status = :status,
            notification_sent = :notification_sent,
            resolved_at = :resolved_at,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.DB), query, a)
	return err
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.AlertFilters) ([]model.LowStockAlert, int, error) {
	q := database.Conn(ctx, r.DB)

	conditions := []string{"store_id = ?"}
	args := []interface{}{f.StoreID}
	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status)
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := sqlx.GetContext(ctx, q, &total, q.Rebind("SELECT count(*) FROM low_stock_alerts"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	query := fmt.Sprintf("SELECT * FROM low_stock_alerts%s ORDER BY created_at DESC, id ASC LIMIT %d OFFSET %d", whereClause, f.Limit, offset)

	alerts := []model.LowStockAlert{}
	if err := sqlx.SelectContext(ctx, q, &alerts, q.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func (r *PGRepository) FindPendingNotifications(ctx context.Context, limit int) ([]model.LowStockAlert, error) {
	q := database.Conn(ctx, r.DB)
	query := fmt.Sprintf(`SELECT * FROM low_stock_alerts WHERE status = ? AND notification_sent = ? ORDER BY created_at ASC LIMIT %d`, limit)

	alerts := []model.LowStockAlert{}
	err := sqlx.SelectContext(ctx, q, &alerts, q.Rebind(query), model.AlertActive, false)
	return alerts, err
}

func (r *PGRepository) MarkNotified(ctx context.Context, id string) error {
	q := database.Conn(ctx, r.DB)
	_, err := q.ExecContext(ctx, q.Rebind(`UPDATE low_stock_alerts SET notification_sent = ? WHERE id = ?`), true, id)
	return err
}
