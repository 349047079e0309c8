package location

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/location/dto"
	"github.com/fekuna/omnipos-stock-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, location *model.InventoryLocation) error
	FindByID(ctx context.Context, id string) (*model.InventoryLocation, error)
	LockByID(ctx context.Context, id string) (*model.InventoryLocation, error)
	FindAll(ctx context.Context, filters *dto.LocationFilters) ([]model.InventoryLocation, error)
	Update(ctx context.Context, location *model.InventoryLocation) error
	CountTransfersInto(ctx context.Context, id string, status model.TransferStatus) (int, error)

	// Denormalized counter
	AdjustStock(ctx context.Context, id string, delta int64) error
	SumStockItems(ctx context.Context, id string) (int64, error)
	SetStock(ctx context.Context, id string, value int64) error
}
