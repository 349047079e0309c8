package movement

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/model"
)

// Repository is append-only: movements are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, m *model.StockMovement) error
	ListByStockItem(ctx context.Context, stockItemID string, page, limit int) ([]model.StockMovement, int, error)
	ListAllAscending(ctx context.Context, stockItemID string) ([]model.StockMovement, error)
	ExistsForReference(ctx context.Context, stockItemID string, refType model.ReferenceType, refID string) (bool, error)
}
