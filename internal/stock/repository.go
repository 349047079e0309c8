package stock

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
)

type Repository interface {
	Create(ctx context.Context, item *model.StockItem) error
	FindByID(ctx context.Context, id string) (*model.StockItem, error)
	FindByTuple(ctx context.Context, storeID, productID string, variationID *string, locationID string) (*model.StockItem, error)

	// UpdateVersioned writes item only if the stored version still equals
	// expectedVersion and fails with a concurrency conflict otherwise.
	UpdateVersioned(ctx context.Context, item *model.StockItem, expectedVersion int64) error

	// Search returns one page plus a summary of the whole filtered set.
	Search(ctx context.Context, filters *dto.SearchFilters, defaultThreshold int64) ([]model.StockItem, int, *dto.SearchSummary, error)
}
