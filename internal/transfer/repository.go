package transfer

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
)

type Repository interface {
	Create(ctx context.Context, t *model.StockTransfer) error
	FindByID(ctx context.Context, id string) (*model.StockTransfer, error)
	FindAll(ctx context.Context, filters *dto.TransferFilters) ([]model.StockTransfer, int, error)

	// UpdateStatus persists t only while the stored status is still from.
	UpdateStatus(ctx context.Context, t *model.StockTransfer, from model.TransferStatus) error
}
