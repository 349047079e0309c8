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
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, item *model.StockItem) error {
	query := `
        INSERT INTO stock_items (
            id, store_id, product_id, variation_id, variation_attributes, location_id, location_name,
            quantity, reserved_quantity, available_quantity, status, selling_price, low_stock_threshold,
            version, last_movement_at, created_at, updated_at, created_by, updated_by
        ) VALUES (
            :id, :store_id, :product_id, :variation_id, :variation_attributes, :location_id, :location_name,
            :quantity, :reserved_quantity, :available_quantity, :status, :selling_price, :low_stock_threshold,
            :version, :last_movement_at, :created_at, :updated_at, :created_by, :updated_by
        )
    `
	_, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.DB), query, item)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("stock entry for product %s at location %s was created concurrently", item.ProductID, item.LocationID)
	}
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.StockItem, error) {
	q := database.Conn(ctx, r.DB)
	var item model.StockItem
	err := sqlx.GetContext(ctx, q, &item, q.Rebind(`SELECT * FROM stock_items WHERE id = ? LIMIT 1`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *PGRepository) FindByTuple(ctx context.Context, storeID, productID string, variationID *string, locationID string) (*model.StockItem, error) {
	variation := ""
	if variationID != nil {
		variation = *variationID
	}

	q := database.Conn(ctx, r.DB)
	query := `
        SELECT * FROM stock_items
        WHERE store_id = ? AND product_id = ? AND COALESCE(variation_id, '') = ? AND location_id = ?
        LIMIT 1
    `
	var item model.StockItem
	err := sqlx.GetContext(ctx, q, &item, q.Rebind(query), storeID, productID, variation, locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *PGRepository) UpdateVersioned(ctx context.Context, item *model.StockItem, expectedVersion int64) error {
	q := database.Conn(ctx, r.DB)
	query := `
        UPDATE stock_items
        SET quantity = ?,
            reserved_quantity = ?,
            available_quantity = ?,
            status = ?,
            variation_attributes = ?,
            selling_price = ?,
            low_stock_threshold = ?,
            version = ?,
            last_movement_at = ?,
            updated_at = ?,
            updated_by = ?
        WHERE id = ? AND version = ?
    `
	res, err := q.ExecContext(ctx, q.Rebind(query),
		item.Quantity,
		item.ReservedQuantity,
		item.AvailableQuantity,
		item.Status,
		item.VariationAttributes,
		item.SellingPrice,
		item.LowStockThreshold,
		item.Version,
		item.LastMovementAt,
		item.UpdatedAt,
		item.UpdatedBy,
		item.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.Conflict("stock item %s changed since version %d", item.ID, expectedVersion)
	}
	return nil
}

type summaryRow struct {
	Total           int   `db:"total"`
	TotalQuantity   int64 `db:"total_quantity"`
	TotalValueCents int64 `db:"total_value_cents"`
	LowStockCount   int64 `db:"low_stock_count"`
	OutOfStockCount int64 `db:"out_of_stock_count"`
}

func (r *PGRepository) Search(ctx context.Context, f *dto.SearchFilters, defaultThreshold int64) ([]model.StockItem, int, *dto.SearchSummary, error) {
	q := database.Conn(ctx, r.DB)

	conditions := []string{"store_id = ?"}
	args := []interface{}{f.StoreID}

	if len(f.LocationIDs) > 0 {
		conditions = append(conditions, "location_id IN (?)")
		args = append(args, f.LocationIDs)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, "status IN (?)")
		args = append(args, statuses)
	}
	if f.ProductID != "" {
		conditions = append(conditions, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.LowStock != nil {
		if *f.LowStock {
			conditions = append(conditions, "available_quantity <= COALESCE(low_stock_threshold, ?)")
		} else {
			conditions = append(conditions, "available_quantity > COALESCE(low_stock_threshold, ?)")
		}
		args = append(args, defaultThreshold)
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	// Summary covers the filtered set, not the page.
	summaryQuery := `
        SELECT
            COUNT(*) AS total,
            CAST(COALESCE(SUM(quantity), 0) AS BIGINT) AS total_quantity,
            CAST(COALESCE(SUM(CASE WHEN selling_price IS NULL THEN 0
                ELSE quantity * CAST(ROUND(selling_price * 100) AS BIGINT) END), 0) AS BIGINT) AS total_value_cents,
            CAST(COALESCE(SUM(CASE WHEN available_quantity <= COALESCE(low_stock_threshold, ?) THEN 1 ELSE 0 END), 0) AS BIGINT) AS low_stock_count,
            CAST(COALESCE(SUM(CASE WHEN available_quantity = 0 THEN 1 ELSE 0 END), 0) AS BIGINT) AS out_of_stock_count
        FROM stock_items` + whereClause

	query, expanded, err := sqlx.In(summaryQuery, append([]interface{}{defaultThreshold}, args...)...)
	if err != nil {
		return nil, 0, nil, err
	}
	var row summaryRow
	if err := sqlx.GetContext(ctx, q, &row, q.Rebind(query), expanded...); err != nil {
		return nil, 0, nil, fmt.Errorf("failed to summarize stock: %w", err)
	}

	orderBy := dto.SortColumns[f.SortBy]
	if orderBy == "" {
		orderBy = "updated_at"
	}
	direction := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		direction = "ASC"
	}
	offset := (f.Page - 1) * f.Limit
	pageQuery := fmt.Sprintf("SELECT * FROM stock_items%s ORDER BY %s %s, id ASC LIMIT %d OFFSET %d",
		whereClause, orderBy, direction, f.Limit, offset)

	query, expanded, err = sqlx.In(pageQuery, args...)
	if err != nil {
		return nil, 0, nil, err
	}
	items := []model.StockItem{}
	if err := sqlx.SelectContext(ctx, q, &items, q.Rebind(query), expanded...); err != nil {
		return nil, 0, nil, err
	}

	summary := &dto.SearchSummary{
		TotalValue:      decimal.New(row.TotalValueCents, -2),
		TotalQuantity:   row.TotalQuantity,
		LowStockCount:   row.LowStockCount,
		OutOfStockCount: row.OutOfStockCount,
	}
	return items, row.Total, summary, nil
}
