package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/alert"
	"github.com/fekuna/omnipos-stock-service/internal/alert/dto"
	"github.com/fekuna/omnipos-stock-service/internal/apperr"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

type alertUseCase struct {
	repo             alert.Repository
	defaultThreshold int64
	transitions      metric.Int64Counter
	logger           logger.ZapLogger
}

// NewAlertUseCase uses defaultThreshold for stock items without their own.
func NewAlertUseCase(repo alert.Repository, defaultThreshold int64, log logger.ZapLogger) alert.UseCase {
	counter, err := otel.Meter("stock-service/alert").Int64Counter("stock.low_stock_alert.transitions",
		metric.WithDescription("Low-stock alerts created and resolved"))
	if err != nil {
		counter = noop.Int64Counter{}
	}
	return &alertUseCase{
		repo:             repo,
		defaultThreshold: defaultThreshold,
		transitions:      counter,
		logger:           log,
	}
}

func (uc *alertUseCase) ThresholdFor(override *int64) int64 {
	if override != nil {
		return *override
	}
	return uc.defaultThreshold
}

func (uc *alertUseCase) Evaluate(ctx context.Context, in *dto.EvaluateInput) (*model.LowStockAlert, error) {
	active, err := uc.repo.FindActiveByStockItem(ctx, in.StockItemID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	low := in.AvailableQuantity <= in.Threshold

	switch {
	case low && active == nil:
		a := &model.LowStockAlert{
			BaseModel: model.BaseModel{
				ID:        uuid.New().String(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			StoreID:           in.StoreID,
			ProductID:         in.ProductID,
			VariationID:       in.VariationID,
			StockItemID:       in.StockItemID,
			CurrentQuantity:   in.AvailableQuantity,
			ThresholdQuantity: in.Threshold,
			ThresholdType:     model.ThresholdAbsolute,
			Status:            model.AlertActive,
		}
		if err := uc.repo.Create(ctx, a); err != nil {
			return nil, err
		}
		uc.record(ctx, "created", in.StoreID)
		uc.logger.Info("low stock alert raised",
			zap.String("stock_item_id", in.StockItemID),
			zap.Int64("available", in.AvailableQuantity),
			zap.Int64("threshold", in.Threshold),
		)
		return a, nil

	case low:
		if active.CurrentQuantity == in.AvailableQuantity && active.ThresholdQuantity == in.Threshold {
			return active, nil
		}
		active.CurrentQuantity = in.AvailableQuantity
		active.ThresholdQuantity = in.Threshold
		active.UpdatedAt = now
		return active, uc.repo.Update(ctx, active)

	case active != nil:
		active.Status = model.AlertResolved
		active.CurrentQuantity = in.AvailableQuantity
		active.ResolvedAt = &now
		active.UpdatedAt = now
		if err := uc.repo.Update(ctx, active); err != nil {
			return nil, err
		}
		uc.record(ctx, "resolved", in.StoreID)
		uc.logger.Info("low stock alert resolved", zap.String("stock_item_id", in.StockItemID))
		return active, nil
	}
	return nil, nil
}

func (uc *alertUseCase) ListAlerts(ctx context.Context, f *dto.AlertFilters) ([]model.LowStockAlert, int, error) {
	if f.StoreID == "" {
		return nil, 0, apperr.Validation("store is required")
	}
	if f.Status != "" && f.Status != model.AlertActive && f.Status != model.AlertResolved {
		return nil, 0, apperr.Validation("invalid alert status %q", f.Status)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	return uc.repo.FindAll(ctx, f)
}

func (uc *alertUseCase) record(ctx context.Context, transition, storeID string) {
	uc.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transition", transition),
		attribute.String("store_id", storeID),
	))
}
