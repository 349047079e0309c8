package movement

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/movement/dto"
)

type UseCase interface {
	Append(ctx context.Context, m *model.StockMovement) error
	ListMovements(ctx context.Context, stockItemID string, page, limit int) ([]model.StockMovement, int, error)
	HasReference(ctx context.Context, stockItemID string, refType model.ReferenceType, refID string) (bool, error)

	// Audit replays the history of item and compares it to the stored counts.
	Audit(ctx context.Context, item *model.StockItem) (*dto.AuditReport, error)
}
