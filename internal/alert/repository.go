package alert

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/alert/dto"
	"github.com/fekuna/omnipos-stock-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, a *model.LowStockAlert) error
	FindActiveByStockItem(ctx context.Context, stockItemID string) (*model.LowStockAlert, error)
	Update(ctx context.Context, a *model.LowStockAlert) error
	FindAll(ctx context.Context, filters *dto.AlertFilters) ([]model.LowStockAlert, int, error)
	FindPendingNotifications(ctx context.Context, limit int) ([]model.LowStockAlert, error)
	MarkNotified(ctx context.Context, id string) error
}
