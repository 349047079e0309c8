package alert

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/alert/dto"
	"github.com/fekuna/omnipos-stock-service/internal/model"
)

type UseCase interface {
	// Evaluate creates, refreshes or resolves the active alert of one stock
	// item. It runs inside the ledger transaction that changed the quantity.
	Evaluate(ctx context.Context, input *dto.EvaluateInput) (*model.LowStockAlert, error)
	ThresholdFor(override *int64) int64
	ListAlerts(ctx context.Context, filters *dto.AlertFilters) ([]model.LowStockAlert, int, error)
}
