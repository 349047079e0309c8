package location

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/location/dto"
	"github.com/fekuna/omnipos-stock-service/internal/model"
)

type UseCase interface {
	CreateLocation(ctx context.Context, input *dto.CreateLocationInput) (*model.InventoryLocation, error)
	GetLocation(ctx context.Context, storeID, id string) (*model.InventoryLocation, error)
	// LockLocation must run inside a transaction; the row stays locked until it ends.
	LockLocation(ctx context.Context, storeID, id string) (*model.InventoryLocation, error)
	UpdateLocation(ctx context.Context, input *dto.UpdateLocationInput) (*model.InventoryLocation, error)
	ListLocations(ctx context.Context, storeID string) ([]model.InventoryLocation, error)

	// AdjustLocationCounter joins the caller's transaction when there is one.
	AdjustLocationCounter(ctx context.Context, id string, delta int64) error
	Reconcile(ctx context.Context, storeID, id string) (*dto.ReconcileResult, error)
	ReconcileAll(ctx context.Context) ([]dto.ReconcileResult, error)
}
