package repository

import (
	"context"
	"fmt"

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

func (r *PGRepository) Append(ctx context.Context, m *model.StockMovement) error {
	query := `
        INSERT INTO stock_movements (
            id, store_id, stock_item_id, product_id, variation_id, type, quantity,
            previous_quantity, new_quantity, reason, reference_type, reference_id,
            sequence, user_id, user_name, created_at
        ) VALUES (
            :id, :store_id, :stock_item_id, :product_id, :variation_id, :type, :quantity,
            :previous_quantity, :new_quantity, :reason, :reference_type, :reference_id,
            :sequence, :user_id, :user_name, :created_at
        )
    `
	_, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.DB), query, m)
	return err
}

func (r *PGRepository) ListByStockItem(ctx context.Context, stockItemID string, page, limit int) ([]model.StockMovement, int, error) {
	q := database.Conn(ctx, r.DB)

	var total int
	if err := sqlx.GetContext(ctx, q, &total,
		q.Rebind(`SELECT count(*) FROM stock_movements WHERE stock_item_id = ?`), stockItemID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	query := fmt.Sprintf(`SELECT * FROM stock_movements WHERE stock_item_id = ? ORDER BY sequence DESC LIMIT %d OFFSET %d`, limit, offset)

	movements := []model.StockMovement{}
	if err := sqlx.SelectContext(ctx, q, &movements, q.Rebind(query), stockItemID); err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

func (r *PGRepository) ListAllAscending(ctx context.Context, stockItemID string) ([]model.StockMovement, error) {
	q := database.Conn(ctx, r.DB)
	movements := []model.StockMovement{}
	err := sqlx.SelectContext(ctx, q, &movements,
		q.Rebind(`SELECT * FROM stock_movements WHERE stock_item_id = ? ORDER BY sequence ASC`), stockItemID)
	return movements, err
}

func (r *PGRepository) ExistsForReference(ctx context.Context, stockItemID string, refType model.ReferenceType, refID string) (bool, error) {
	q := database.Conn(ctx, r.DB)
	var n int
	err := sqlx.GetContext(ctx, q, &n, q.Rebind(`
        SELECT count(*) FROM stock_movements
        WHERE stock_item_id = ? AND reference_type = ? AND reference_id = ?
    `), stockItemID, refType, refID)
	return n > 0, err
}
