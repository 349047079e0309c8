package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperr"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/movement"
	"github.com/fekuna/omnipos-stock-service/internal/movement/dto"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/google/uuid"
)

type movementUseCase struct {
	repo   movement.Repository
	logger logger.ZapLogger
}

func NewMovementUseCase(repo movement.Repository, log logger.ZapLogger) movement.UseCase {
	return &movementUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *movementUseCase) Append(ctx context.Context, m *model.StockMovement) error {
	if m.StockItemID == "" {
		return apperr.Validation("movement requires a stock item")
	}
	if m.Type != model.MovementInbound && m.Type != model.MovementOutbound {
		return apperr.Validation("invalid movement type %q", m.Type)
	}
	if m.Quantity <= 0 {
		return apperr.Validation("movement quantity must be positive, got %d", m.Quantity)
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return uc.repo.Append(ctx, m)
}

func (uc *movementUseCase) ListMovements(ctx context.Context, stockItemID string, page, limit int) ([]model.StockMovement, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return uc.repo.ListByStockItem(ctx, stockItemID, page, limit)
}

func (uc *movementUseCase) HasReference(ctx context.Context, stockItemID string, refType model.ReferenceType, refID string) (bool, error) {
	return uc.repo.ExistsForReference(ctx, stockItemID, refType, refID)
}

func (uc *movementUseCase) Audit(ctx context.Context, item *model.StockItem) (*dto.AuditReport, error) {
	movements, err := uc.repo.ListAllAscending(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	report := Replay(movements)
	report.StockItemID = item.ID
	report.CurrentQuantity = item.Quantity
	report.CurrentReserved = item.ReservedQuantity

	if n := len(movements); n > 0 && movements[n-1].Sequence != item.Version {
		report.Breaks = append(report.Breaks, dto.AuditBreak{
			Sequence: movements[n-1].Sequence,
			Reason:   fmt.Sprintf("last sequence does not match item version %d", item.Version),
		})
	}

	report.Consistent = len(report.Breaks) == 0 &&
		report.ReconstructedQuantity == item.Quantity &&
		report.ReconstructedReserved == item.ReservedQuantity
	return report, nil
}

// Replay folds movements, oldest first, into the quantity and reservation they
// imply. Each movement must chain onto the previous one.
func Replay(movements []model.StockMovement) *dto.AuditReport {
	report := &dto.AuditReport{Movements: len(movements)}

	var quantity, reserved, lastSeq int64
	fail := func(seq int64, format string, args ...interface{}) {
		report.Breaks = append(report.Breaks, dto.AuditBreak{Sequence: seq, Reason: fmt.Sprintf(format, args...)})
	}

	for _, m := range movements {
		if m.Sequence != lastSeq+1 {
			fail(m.Sequence, "sequence gap after %d", lastSeq)
		}
		lastSeq = m.Sequence

		if m.PreviousQuantity != quantity {
			fail(m.Sequence, "previous quantity %d, expected %d", m.PreviousQuantity, quantity)
		}

		switch m.ReferenceType {
		case model.RefReservation, model.RefRelease:
			if m.PreviousQuantity != m.NewQuantity {
				fail(m.Sequence, "%s changed physical quantity", m.ReferenceType)
			}
			if m.ReferenceType == model.RefReservation {
				reserved += m.Quantity
			} else {
				reserved -= m.Quantity
			}
		default:
			delta := m.NewQuantity - m.PreviousQuantity
			want := m.Quantity
			if m.Type == model.MovementOutbound {
				want = -want
			}
			if delta != want {
				fail(m.Sequence, "%s movement of %d moved quantity by %d", m.Type, m.Quantity, delta)
			}
		}
		quantity = m.NewQuantity
	}

	report.ReconstructedQuantity = quantity
	report.ReconstructedReserved = reserved
	return report
}
